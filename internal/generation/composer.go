package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"legalqa/internal/constants"
	"legalqa/internal/logger"
	"legalqa/internal/retrieval"
	apperrors "legalqa/pkg/errors"
	"legalqa/pkg/metrics"
	"legalqa/pkg/tracing"
)

type Composer struct {
	model   Model
	timeout time.Duration
	logger  logger.Logger
}

func NewComposer(model Model, timeout time.Duration, log logger.Logger) *Composer {
	if timeout <= 0 {
		timeout = constants.DefaultGenerationTimeout
	}
	return &Composer{
		model:   model,
		timeout: timeout,
		logger:  log,
	}
}

// Compose answers question grounded on fragments. An empty fragment list
// still produces an answer.
func (c *Composer) Compose(ctx context.Context, question string, fragments []retrieval.Fragment) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "generation.compose")
	defer span.End()
	span.SetAttributes(attribute.Int("generation.fragments", len(fragments)))

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	answer, err := c.model.Generate(genCtx, SystemPrompt, BuildPrompt(question, fragments))
	if err != nil {
		err = asGenerationFailure(genCtx, err, c.timeout)
		metrics.ObserveGeneration(time.Since(start), "failure")
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		c.logger.WarnwCtx(ctx, "Generation failed",
			"error", err,
		)
		return "", err
	}

	metrics.ObserveGeneration(time.Since(start), "success")
	c.logger.DebugwCtx(ctx, "Generation completed",
		"answer_length", len(answer),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return answer, nil
}

func asGenerationFailure(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ErrGeneration.
			WithCause(fmt.Errorf("generation timed out after %s: %w", timeout, err)).
			WithDetail("timeout", timeout.String())
	}
	if apperrors.IsGeneration(err) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrGeneration)
}
