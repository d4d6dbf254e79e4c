package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"legalqa/pkg/circuitbreaker"
	apperrors "legalqa/pkg/errors"
)

type CircuitBreakerIndex struct {
	index Index
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerIndex(index Index, cfg circuitbreaker.Config) *CircuitBreakerIndex {
	return &CircuitBreakerIndex{
		index: index,
		cb:    circuitbreaker.NewWrapper(cfg),
	}
}

func (i *CircuitBreakerIndex) Search(ctx context.Context, query Query) ([]Hit, error) {
	result, err := i.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return i.index.Search(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.ErrRetrieval.
				WithCause(fmt.Errorf("circuit breaker %s: %w", i.cb.Name(), err))
		}
		return nil, err
	}

	hits, ok := result.([]Hit)
	if !ok {
		return nil, apperrors.ErrRetrieval.WithCause(fmt.Errorf("index returned invalid result type"))
	}
	return hits, nil
}

func (i *CircuitBreakerIndex) State() string {
	return i.cb.State().String()
}

func (i *CircuitBreakerIndex) IsOpen() bool {
	return i.cb.IsOpen()
}
