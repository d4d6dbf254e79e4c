package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"legalqa/pkg/circuitbreaker"
	apperrors "legalqa/pkg/errors"
	"legalqa/pkg/ratelimit"
)

type CircuitBreakerModel struct {
	model Model
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerModel(model Model, cfg circuitbreaker.Config) *CircuitBreakerModel {
	return &CircuitBreakerModel{
		model: model,
		cb:    circuitbreaker.NewWrapper(cfg),
	}
}

func (m *CircuitBreakerModel) Generate(ctx context.Context, system, user string) (string, error) {
	result, err := m.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return m.model.Generate(ctx, system, user)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperrors.ErrGeneration.
				WithCause(fmt.Errorf("circuit breaker %s: %w", m.cb.Name(), err))
		}
		return "", err
	}

	answer, ok := result.(string)
	if !ok {
		return "", apperrors.ErrGeneration.WithCause(fmt.Errorf("model returned invalid result type"))
	}
	return answer, nil
}

func (m *CircuitBreakerModel) IsOpen() bool {
	return m.cb.IsOpen()
}

// RateLimitedModel waits for a limiter token before each call. The wait
// counts against the caller's deadline.
type RateLimitedModel struct {
	model   Model
	limiter *ratelimit.Limiter
}

func NewRateLimitedModel(model Model, limiter *ratelimit.Limiter) *RateLimitedModel {
	return &RateLimitedModel{
		model:   model,
		limiter: limiter,
	}
}

func (m *RateLimitedModel) Generate(ctx context.Context, system, user string) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGeneration)
	}
	return m.model.Generate(ctx, system, user)
}
