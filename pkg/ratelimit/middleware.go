package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"legalqa/pkg/metrics"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

type MiddlewareConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// clientLimiters keeps one limiter per client address and forgets clients
// idle for longer than maxAge.
type clientLimiters struct {
	mu       sync.RWMutex
	limiters map[string]*clientLimiter
	rps      float64
	burst    int
	maxAge   time.Duration
}

func (c *clientLimiters) get(key string, now time.Time) *clientLimiter {
	c.mu.RLock()
	l, ok := c.limiters[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		l, ok = c.limiters[key]
		if !ok {
			l = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(c.rps), c.burst)}
			c.limiters[key] = l
		}
		c.mu.Unlock()
	}

	l.mu.Lock()
	l.lastSeen = now
	l.mu.Unlock()
	return l
}

func (c *clientLimiters) evict(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, l := range c.limiters {
		l.mu.Lock()
		lastSeen := l.lastSeen
		l.mu.Unlock()
		if now.Sub(lastSeen) > c.maxAge {
			delete(c.limiters, key)
		}
	}
}

func (c *clientLimiters) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.limiters)
}

// Middleware limits each client of the operations server separately. The
// eviction loop runs for the lifetime of the process.
func Middleware(cfg MiddlewareConfig) gin.HandlerFunc {
	defaults := DefaultMiddlewareConfig()
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaults.MaxAge
	}

	clients := &clientLimiters{
		limiters: make(map[string]*clientLimiter),
		rps:      cfg.RPS,
		burst:    cfg.Burst,
		maxAge:   cfg.MaxAge,
	}

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			clients.evict(now)
		}
	}()

	return handler(clients, cfg.RPS)
}

func handler(clients *clientLimiters, rps float64) gin.HandlerFunc {
	limit := strconv.Itoa(int(rps))

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		l := clients.get(clientIP, time.Now())

		c.Header("X-RateLimit-Limit", limit)

		if !l.limiter.Allow() {
			metrics.HTTPRateLimitTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.HTTPRateLimitTotal.WithLabelValues("allowed").Inc()

		remaining := int(l.limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}
