package config

import (
	"fmt"
	"net/url"
	"strings"

	"legalqa/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateRabbitMQ(cfg.Broker.RabbitMQ); err != nil {
		errors = append(errors, err)
	}

	if err := validateSearch(cfg.Search); err != nil {
		errors = append(errors, err)
	}

	if err := validateGeneration(cfg.Generation); err != nil {
		errors = append(errors, err)
	}

	if err := validateRPC(cfg.RPC, cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateCache(cfg.Cache); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst < 1) {
		return &ValidationError{
			Field:   "server.rate_limit",
			Message: "rps must be positive and burst at least 1 when rate limiting is enabled",
		}
	}

	return nil
}

func validateRabbitMQ(cfg RabbitMQConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.host",
			Message: "RabbitMQ host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "broker.rabbitmq.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.user",
			Message: "RabbitMQ user is required",
		}
	}

	if cfg.Password == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.password",
			Message: "RabbitMQ password is required",
		}
	}

	if cfg.Queue == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.queue",
			Message: "RabbitMQ queue name is required",
		}
	}

	if cfg.PrefetchCount != constants.DefaultPrefetchCount {
		return &ValidationError{
			Field:   "broker.rabbitmq.prefetch_count",
			Message: fmt.Sprintf("prefetch count must be %d, got %d; scale with rpc.workers instead", constants.DefaultPrefetchCount, cfg.PrefetchCount),
		}
	}

	return nil
}

func validateSearch(cfg SearchConfig) error {
	if cfg.URL == "" {
		return &ValidationError{
			Field:   "search.url",
			Message: "search index URL is required",
		}
	}

	if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:   "search.url",
			Message: fmt.Sprintf("invalid search index URL: %s", cfg.URL),
		}
	}

	if cfg.APIKey == "" {
		return &ValidationError{
			Field:   "search.api_key",
			Message: "search index API key is required",
		}
	}

	if cfg.Index == "" {
		return &ValidationError{
			Field:   "search.index",
			Message: "search index name is required",
		}
	}

	if cfg.Limit < 1 || cfg.Limit > constants.MaxRankLimit {
		return &ValidationError{
			Field:   "search.limit",
			Message: fmt.Sprintf("limit must be between 1 and %d, got %d", constants.MaxRankLimit, cfg.Limit),
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "search.timeout",
			Message: "timeout must be positive",
		}
	}

	return nil
}

func validateGeneration(cfg GenerationConfig) error {
	if cfg.APIKey == "" {
		return &ValidationError{
			Field:   "generation.api_key",
			Message: "generation service API key is required",
		}
	}

	if cfg.Model == "" {
		return &ValidationError{
			Field:   "generation.model",
			Message: "model name is required",
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "generation.timeout",
			Message: "timeout must be positive",
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst < 1) {
		return &ValidationError{
			Field:   "generation.rate_limit",
			Message: "rps must be positive and burst at least 1 when rate limiting is enabled",
		}
	}

	return nil
}

func validateRPC(cfg RPCConfig, broker BrokerConfig) error {
	if cfg.Workers < 1 {
		return &ValidationError{
			Field:   "rpc.workers",
			Message: fmt.Sprintf("at least one worker is required, got %d", cfg.Workers),
		}
	}

	if cfg.Retry.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "rpc.retry.max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	if cfg.Retry.InitialInterval < 0 || cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "rpc.retry",
			Message: "intervals must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "rpc.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "rpc.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	switch strings.ToLower(cfg.DeadLetter.Type) {
	case constants.DeadLetterNone:
	case constants.DeadLetterRabbitMQ:
		if cfg.DeadLetter.RoutingKey == "" {
			return &ValidationError{
				Field:   "rpc.dead_letter.routing_key",
				Message: "routing key is required for rabbitmq dead letters",
			}
		}
	case constants.DeadLetterKafka:
		if cfg.DeadLetter.Topic == "" {
			return &ValidationError{
				Field:   "rpc.dead_letter.topic",
				Message: "topic is required for kafka dead letters",
			}
		}
		if len(broker.Kafka.Brokers) == 0 {
			return &ValidationError{
				Field:   "broker.kafka.brokers",
				Message: "at least one Kafka broker is required for kafka dead letters",
			}
		}
	default:
		return &ValidationError{
			Field:   "rpc.dead_letter.type",
			Message: fmt.Sprintf("unknown dead letter type: %s (supported: rabbitmq, kafka)", cfg.DeadLetter.Type),
		}
	}

	return nil
}

func validateCache(cfg CacheConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Redis.Host == "" {
		return &ValidationError{
			Field:   "cache.redis.host",
			Message: "Redis host is required when the cache is enabled",
		}
	}

	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return &ValidationError{
			Field:   "cache.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
		}
	}

	if cfg.TTL <= 0 {
		return &ValidationError{
			Field:   "cache.ttl",
			Message: "TTL must be positive",
		}
	}

	return nil
}
