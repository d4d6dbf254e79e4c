package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"legalqa/internal/config"
	"legalqa/internal/logger"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// InitRedis connects the rank cache. It returns nil, nil when the cache is
// disabled.
func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	if !dc.Config.Cache.Enabled {
		return nil, nil
	}

	rc := dc.Config.Cache.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", rc.Host, rc.Port),
		Password: rc.Password,
		DB:       rc.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Infow("Redis connected successfully", "addr", rdb.Options().Addr)
	return rdb, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, redis *redis.Client) []error {
	var errs []error

	if redis != nil {
		if err := redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	return errs
}
