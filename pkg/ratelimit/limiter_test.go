package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstPassesImmediately(t *testing.T) {
	l := New("test", Config{RPS: 1, Burst: 2})

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLimiter_DeadlineBeforeToken(t *testing.T) {
	l := New("test", Config{RPS: 0.1, Burst: 1})
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter test")
}

func TestNew_Defaults(t *testing.T) {
	l := New("generation", Config{})
	assert.Equal(t, "generation", l.Name())
	assert.NoError(t, l.Wait(context.Background()))
}
