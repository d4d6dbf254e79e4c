package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"legalqa/internal/constants"
	"legalqa/internal/logger"
	"legalqa/pkg/metrics"
)

// Cache stores encoded rankings by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// CachedRanker serves repeated questions from the cache for up to ttl.
// Cache failures are logged and fall through to the wrapped ranker.
type CachedRanker struct {
	ranker Ranker
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRanker(ranker Ranker, cache Cache, ttl time.Duration, log logger.Logger) *CachedRanker {
	return &CachedRanker{
		ranker: ranker,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

func (r *CachedRanker) Rank(ctx context.Context, question string, limit int) ([]Fragment, error) {
	key := rankCacheKey(question, limit)

	cached, found, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.IncRankCache("error")
		r.logger.WarnwCtx(ctx, "Rank cache read failed",
			"error", err,
		)
	case found:
		var fragments []Fragment
		if err := json.Unmarshal(cached, &fragments); err == nil {
			metrics.IncRankCache("hit")
			return fragments, nil
		}
		metrics.IncRankCache("error")
		r.logger.WarnwCtx(ctx, "Discarding undecodable rank cache entry",
			"key", key,
		)
	default:
		metrics.IncRankCache("miss")
	}

	fragments, err := r.ranker.Rank(ctx, question, limit)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(fragments)
	if err != nil {
		return fragments, nil
	}
	if err := r.cache.Set(ctx, key, encoded, r.ttl); err != nil {
		r.logger.WarnwCtx(ctx, "Rank cache write failed",
			"error", err,
		)
	}

	return fragments, nil
}

func rankCacheKey(question string, limit int) string {
	sum := sha256.Sum256([]byte(question))
	return constants.CacheKeyPrefixRank + strconv.Itoa(limit) + ":" + hex.EncodeToString(sum[:])
}
