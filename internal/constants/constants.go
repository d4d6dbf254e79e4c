package constants

import "time"

const (
	ServiceName = "answer-worker"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultSearchTimeout     = 10 * time.Second
	DefaultGenerationTimeout = 60 * time.Second
	DefaultPublishTimeout    = 5 * time.Second
)

const (
	DefaultRankLimit = 5
	MaxRankLimit     = 50
)

const (
	CacheKeyPrefixRank = "rank:"
)

const (
	DefaultPrefetchCount = 1
	DefaultWorkers       = 1
	DefaultConsumerTag   = "answer-worker"
)

const (
	ContentTypeJSON = "application/json"
)

const (
	DefaultChatModel = "gpt-4o-mini"
)

const (
	DeadLetterNone     = ""
	DeadLetterRabbitMQ = "rabbitmq"
	DeadLetterKafka    = "kafka"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	HealthCheckTimeout = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
