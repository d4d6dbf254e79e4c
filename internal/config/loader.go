package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"legalqa/internal/constants"
)

// LoadConfig reads the YAML file (when given) and layers the environment on
// top of it. With an empty path the configuration comes from the environment
// and defaults only.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.rate_limit.rps", 10.0)
	viper.SetDefault("server.rate_limit.burst", 20)

	viper.SetDefault("broker.rabbitmq.port", 5672)
	viper.SetDefault("broker.rabbitmq.vhost", "/")
	viper.SetDefault("broker.rabbitmq.declare_topology", true)
	viper.SetDefault("broker.rabbitmq.prefetch_count", constants.DefaultPrefetchCount)
	viper.SetDefault("broker.rabbitmq.consumer_tag", constants.DefaultConsumerTag)

	viper.SetDefault("search.limit", constants.DefaultRankLimit)
	viper.SetDefault("search.timeout", constants.DefaultSearchTimeout)

	viper.SetDefault("generation.model", constants.DefaultChatModel)
	viper.SetDefault("generation.timeout", constants.DefaultGenerationTimeout)
	viper.SetDefault("generation.rate_limit.rps", 1.0)
	viper.SetDefault("generation.rate_limit.burst", 1)

	viper.SetDefault("rpc.workers", constants.DefaultWorkers)
	viper.SetDefault("rpc.retry.max_attempts", 3)
	viper.SetDefault("rpc.retry.initial_interval", "1s")
	viper.SetDefault("rpc.retry.max_interval", "30s")
	viper.SetDefault("rpc.retry.multiplier", 2.0)
	viper.SetDefault("rpc.retry.max_elapsed_time", "5m")

	viper.SetDefault("cache.ttl", "10m")
	viper.SetDefault("cache.redis.port", 6379)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvVariables() {
	// The RABBITMQ_* names are the ones older deployments of the worker export.
	viper.BindEnv("broker.rabbitmq.host", "BROKER_RABBITMQ_HOST", "RABBITMQ_HOST")
	viper.BindEnv("broker.rabbitmq.port", "BROKER_RABBITMQ_PORT", "RABBITMQ_PORT")
	viper.BindEnv("broker.rabbitmq.user", "BROKER_RABBITMQ_USER", "RABBITMQ_USER")
	viper.BindEnv("broker.rabbitmq.password", "BROKER_RABBITMQ_PASSWORD", "RABBITMQ_PASS")
	viper.BindEnv("broker.rabbitmq.vhost", "BROKER_RABBITMQ_VHOST")
	viper.BindEnv("broker.rabbitmq.queue", "BROKER_RABBITMQ_QUEUE", "RABBITMQ_QUEUE")
	viper.BindEnv("broker.rabbitmq.exchange", "BROKER_RABBITMQ_EXCHANGE", "RABBITMQ_EXCHANGE")
	viper.BindEnv("broker.rabbitmq.routing_key", "BROKER_RABBITMQ_ROUTING_KEY", "RABBITMQ_ROUTING_KEY")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")

	viper.BindEnv("search.url", "SEARCH_URL", "ELASTICSEARCH_URL")
	viper.BindEnv("search.api_key", "SEARCH_API_KEY", "ELASTICSEARCH_API_KEY")
	viper.BindEnv("search.index", "SEARCH_INDEX", "ELASTICSEARCH_INDEX")
	viper.BindEnv("search.timeout", "SEARCH_TIMEOUT")

	viper.BindEnv("generation.api_key", "GENERATION_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("generation.base_url", "GENERATION_BASE_URL")
	viper.BindEnv("generation.model", "GENERATION_MODEL")
	viper.BindEnv("generation.timeout", "GENERATION_TIMEOUT")

	viper.BindEnv("rpc.workers", "RPC_WORKERS")
	viper.BindEnv("rpc.error_replies", "RPC_ERROR_REPLIES")
	viper.BindEnv("rpc.dead_letter.type", "RPC_DEAD_LETTER_TYPE")
	viper.BindEnv("rpc.dead_letter.topic", "RPC_DEAD_LETTER_TOPIC")

	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.redis.host", "CACHE_REDIS_HOST")
	viper.BindEnv("cache.redis.port", "CACHE_REDIS_PORT")
	viper.BindEnv("cache.redis.password", "CACHE_REDIS_PASSWORD")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
