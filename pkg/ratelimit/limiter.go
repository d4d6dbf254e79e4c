package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"legalqa/pkg/metrics"
)

type Config struct {
	RPS   float64
	Burst int
}

func DefaultConfig() Config {
	return Config{
		RPS:   1.0,
		Burst: 1,
	}
}

// Limiter blocks callers until a token is available. It is shared by all
// workers of the process so the configured rate is a process-wide ceiling.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

func New(name string, cfg Config) *Limiter {
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultConfig().RPS
	}
	if cfg.Burst < 1 {
		cfg.Burst = DefaultConfig().Burst
	}
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
	}
}

// Wait returns ctx's error when the deadline passes before a token frees up.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	metrics.ObserveRateLimitWait(l.name, time.Since(start))
	if err != nil {
		return fmt.Errorf("rate limiter %s: %w", l.name, err)
	}
	return nil
}

func (l *Limiter) Name() string {
	return l.name
}
