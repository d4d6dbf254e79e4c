package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult, len(r.checkers))
	overall := StatusHealthy

	for _, checker := range r.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checker.Check(checkCtx)
		cancel()

		result := CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			overall = StatusUnhealthy
		}

		results[checker.Name()] = result
	}

	return Health{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// FuncChecker adapts a plain function, e.g. a search index ping.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string {
	return c.name
}

func (c *FuncChecker) Check(ctx context.Context) error {
	return c.fn(ctx)
}

type connection interface {
	IsClosed() bool
}

// ConnectionChecker reports a broker connection that has been closed.
type ConnectionChecker struct {
	name  string
	conns func() []connection
}

func NewBrokerChecker[C connection](name string, conns func() []C) *ConnectionChecker {
	return &ConnectionChecker{
		name: name,
		conns: func() []connection {
			src := conns()
			out := make([]connection, len(src))
			for i := range src {
				out[i] = src[i]
			}
			return out
		},
	}
}

func (c *ConnectionChecker) Name() string {
	return c.name
}

func (c *ConnectionChecker) Check(ctx context.Context) error {
	conns := c.conns()
	if len(conns) == 0 {
		return errors.New("no broker connection established")
	}
	for i, conn := range conns {
		if conn.IsClosed() {
			return fmt.Errorf("broker connection %d is closed", i)
		}
	}
	return nil
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
