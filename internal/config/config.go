package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Search         SearchConfig         `mapstructure:"search"`
	Generation     GenerationConfig     `mapstructure:"generation"`
	RPC            RPCConfig            `mapstructure:"rpc"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Enabled      bool            `mapstructure:"enabled"`
	Port         int             `mapstructure:"port"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type BrokerConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type RabbitMQConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	VHost           string `mapstructure:"vhost"`
	Queue           string `mapstructure:"queue"`
	Exchange        string `mapstructure:"exchange"`
	RoutingKey      string `mapstructure:"routing_key"`
	DeclareTopology bool   `mapstructure:"declare_topology"`
	PrefetchCount   int    `mapstructure:"prefetch_count"`
	ConsumerTag     string `mapstructure:"consumer_tag"`
}

// KafkaConfig is only consulted when dead letters go to Kafka.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type SearchConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Index   string        `mapstructure:"index"`
	Limit   int           `mapstructure:"limit"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GenerationConfig struct {
	APIKey      string          `mapstructure:"api_key"`
	BaseURL     string          `mapstructure:"base_url"`
	Model       string          `mapstructure:"model"`
	Temperature float32         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type RPCConfig struct {
	Workers      int              `mapstructure:"workers"`
	EchoQuestion bool             `mapstructure:"echo_question"`
	ErrorReplies bool             `mapstructure:"error_replies"`
	Retry        RetryConfig      `mapstructure:"retry"`
	DeadLetter   DeadLetterConfig `mapstructure:"dead_letter"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type DeadLetterConfig struct {
	Type       string `mapstructure:"type"` // "", "rabbitmq", "kafka"
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
	Topic      string `mapstructure:"topic"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
