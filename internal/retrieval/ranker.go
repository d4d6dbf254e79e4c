package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"legalqa/internal/constants"
	"legalqa/internal/logger"
	apperrors "legalqa/pkg/errors"
	"legalqa/pkg/metrics"
	"legalqa/pkg/tracing"
)

// Ranker returns the text of the most relevant documents for a question,
// best first. A non-positive limit means the default.
type Ranker interface {
	Rank(ctx context.Context, question string, limit int) ([]Fragment, error)
}

type IndexRanker struct {
	index        Index
	defaultLimit int
	timeout      time.Duration
	logger       logger.Logger
}

func NewRanker(index Index, defaultLimit int, timeout time.Duration, log logger.Logger) *IndexRanker {
	if defaultLimit <= 0 {
		defaultLimit = constants.DefaultRankLimit
	}
	if timeout <= 0 {
		timeout = constants.DefaultSearchTimeout
	}
	return &IndexRanker{
		index:        index,
		defaultLimit: defaultLimit,
		timeout:      timeout,
		logger:       log,
	}
}

func (r *IndexRanker) Rank(ctx context.Context, question string, limit int) ([]Fragment, error) {
	limit = r.effectiveLimit(limit)

	ctx, span := tracing.StartSpan(ctx, "retrieval.rank")
	defer span.End()
	span.SetAttributes(attribute.Int("retrieval.limit", limit))

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	hits, err := r.index.Search(searchCtx, BuildQuery(question, limit))
	if err != nil {
		err = asRetrievalFailure(searchCtx, err, r.timeout)
		metrics.ObserveRetrieval(time.Since(start), "failure", 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		r.logger.WarnwCtx(ctx, "Search failed",
			"error", err,
			"limit", limit,
		)
		return nil, err
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	fragments := ExtractFragments(hits)

	metrics.ObserveRetrieval(time.Since(start), "success", len(fragments))
	span.SetAttributes(attribute.Int("retrieval.fragments", len(fragments)))
	r.logger.DebugwCtx(ctx, "Search completed",
		"hits", len(hits),
		"fragments", len(fragments),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return fragments, nil
}

func (r *IndexRanker) effectiveLimit(limit int) int {
	if limit <= 0 {
		return r.defaultLimit
	}
	if limit > constants.MaxRankLimit {
		return constants.MaxRankLimit
	}
	return limit
}

func asRetrievalFailure(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ErrRetrieval.
			WithCause(fmt.Errorf("search timed out after %s: %w", timeout, err)).
			WithDetail("timeout", timeout.String())
	}
	if apperrors.IsRetrieval(err) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrRetrieval)
}
