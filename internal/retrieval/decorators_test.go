package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalqa/internal/logger"
	"legalqa/pkg/circuitbreaker"
	apperrors "legalqa/pkg/errors"
)

func TestCircuitBreakerIndex_OpensAfterFailures(t *testing.T) {
	inner := &memoryIndex{err: apperrors.ErrRetrieval.WithCause(errors.New("503"))}
	cfg := circuitbreaker.FromSettings("elasticsearch-test", 1, time.Minute, time.Minute, 0.5, 2)
	index := NewCircuitBreakerIndex(inner, cfg)

	for i := 0; i < 2; i++ {
		_, err := index.Search(context.Background(), BuildQuery("q", 5))
		require.Error(t, err)
	}
	assert.True(t, index.IsOpen())
	assert.Equal(t, "open", index.State())

	_, err := index.Search(context.Background(), BuildQuery("q", 5))
	require.Error(t, err)
	assert.True(t, apperrors.IsRetrieval(err))
	assert.ErrorContains(t, err, "circuit breaker")
	assert.Len(t, inner.queries, 2)
}

func TestCircuitBreakerIndex_PassesHits(t *testing.T) {
	now := time.Now()
	inner := &memoryIndex{docs: corpus(now), now: now}
	index := NewCircuitBreakerIndex(inner, circuitbreaker.DefaultConfig("elasticsearch-pass"))

	hits, err := index.Search(context.Background(), BuildQuery("pajak", 2))
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.False(t, index.IsOpen())
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: map[string][]byte{},
		ttls:    map[string]time.Duration{},
	}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

type countingRanker struct {
	calls     int
	fragments []Fragment
	err       error
}

func (r *countingRanker) Rank(ctx context.Context, question string, limit int) ([]Fragment, error) {
	r.calls++
	return r.fragments, r.err
}

func TestCachedRanker_HitSkipsRanker(t *testing.T) {
	inner := &countingRanker{fragments: []Fragment{"Pasal 1", "Pasal 2"}}
	cache := newFakeCache()
	ranker := NewCachedRanker(inner, cache, time.Minute, logger.NopLogger())

	first, err := ranker.Rank(context.Background(), "q", 5)
	require.NoError(t, err)
	second, err := ranker.Rank(context.Background(), "q", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, time.Minute, cache.ttls[rankCacheKey("q", 5)])
}

func TestCachedRanker_KeyIncludesLimit(t *testing.T) {
	inner := &countingRanker{fragments: []Fragment{"a"}}
	ranker := NewCachedRanker(inner, newFakeCache(), time.Minute, logger.NopLogger())

	_, _ = ranker.Rank(context.Background(), "q", 5)
	_, _ = ranker.Rank(context.Background(), "q", 3)
	assert.Equal(t, 2, inner.calls)
	assert.NotEqual(t, rankCacheKey("q", 5), rankCacheKey("q", 3))
	assert.Contains(t, rankCacheKey("q", 5), "rank:5:")
}

func TestCachedRanker_CacheFailureFallsThrough(t *testing.T) {
	inner := &countingRanker{fragments: []Fragment{"a"}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	ranker := NewCachedRanker(inner, cache, time.Minute, logger.NopLogger())

	got, err := ranker.Rank(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []Fragment{"a"}, got)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedRanker_UndecodableEntryIsIgnored(t *testing.T) {
	inner := &countingRanker{fragments: []Fragment{"a"}}
	cache := newFakeCache()
	cache.entries[rankCacheKey("q", 5)] = []byte("not json")
	ranker := NewCachedRanker(inner, cache, time.Minute, logger.NopLogger())

	got, err := ranker.Rank(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []Fragment{"a"}, got)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedRanker_ErrorsAreNotCached(t *testing.T) {
	inner := &countingRanker{err: apperrors.ErrRetrieval}
	cache := newFakeCache()
	ranker := NewCachedRanker(inner, cache, time.Minute, logger.NopLogger())

	_, err := ranker.Rank(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetrieval(err))
	assert.Empty(t, cache.entries)
}
