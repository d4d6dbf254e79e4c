package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalqa/internal/broker"
	"legalqa/internal/config"
	"legalqa/internal/logger"
)

type closingSink struct {
	closed bool
	err    error
}

func (s *closingSink) Send(ctx context.Context, letter broker.DeadLetter) error { return nil }
func (s *closingSink) Name() string                                              { return "test" }
func (s *closingSink) Close() error {
	s.closed = true
	return s.err
}

func TestBase_InitDeadLetters(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		b := NewBase(&config.Config{}, logger.NopLogger())
		require.NoError(t, b.InitDeadLetters())
		assert.Nil(t, b.DeadLetters)
	})

	t.Run("kafka", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Broker.Kafka.Brokers = []string{"localhost:9092"}
		cfg.RPC.DeadLetter = config.DeadLetterConfig{Type: "kafka", Topic: "questions.dead"}

		b := NewBase(cfg, logger.NopLogger())
		require.NoError(t, b.InitDeadLetters())
		require.NotNil(t, b.DeadLetters)
		assert.Equal(t, "kafka", b.DeadLetters.Name())
		assert.Empty(t, b.ShutdownDeadLetters())
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.RPC.DeadLetter.Type = "sqs"

		b := NewBase(cfg, logger.NopLogger())
		assert.ErrorContains(t, b.InitDeadLetters(), "unknown dead letter type")
	})
}

func TestBase_Shutdown(t *testing.T) {
	sink := &closingSink{}
	b := NewBase(&config.Config{}, logger.NopLogger())
	b.DeadLetters = sink

	called := false
	err := b.Shutdown(context.Background(), func(ctx context.Context) []error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, sink.closed)
}

func TestBase_ShutdownCollectsErrors(t *testing.T) {
	b := NewBase(&config.Config{}, logger.NopLogger())
	b.DeadLetters = &closingSink{err: errors.New("boom")}

	err := b.Shutdown(context.Background(), func(ctx context.Context) []error {
		return []error{errors.New("server stuck")}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server stuck")
	assert.Contains(t, err.Error(), "dead letter sink close error: boom")
}

func TestDatabaseConnector_InitRedisDisabled(t *testing.T) {
	dc := NewDatabaseConnector(&config.Config{}, logger.NopLogger())

	rdb, err := dc.InitRedis(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rdb)
	assert.Empty(t, dc.ShutdownDatabases(context.Background(), nil))
}

func TestDatabaseConnector_InitRedisUnreachable(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Enabled = true
	cfg.Cache.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	dc := NewDatabaseConnector(cfg, logger.NopLogger())
	_, err := dc.InitRedis(context.Background())
	assert.ErrorContains(t, err, "failed to ping Redis")
}
