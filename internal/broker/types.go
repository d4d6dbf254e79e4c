package broker

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends one message. An empty exchange is the default exchange,
// where the routing key is the queue name.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// DeadLetter is an inbound message that could not be answered.
type DeadLetter struct {
	Body          []byte    `json:"body"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ReplyTo       string    `json:"reply_to,omitempty"`
	ErrorCode     string    `json:"error_code"`
	Reason        string    `json:"reason"`
	SourceQueue   string    `json:"source_queue"`
	FailedAt      time.Time `json:"failed_at"`
}

type DeadLetterSink interface {
	Send(ctx context.Context, letter DeadLetter) error
	Name() string
	Close() error
}
