package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"legalqa/internal/constants"
	"legalqa/pkg/tracing"
)

// AMQPDeadLetterSink publishes dead letters through a publisher of its own.
// Sends are serialized since all workers share the sink.
type AMQPDeadLetterSink struct {
	mu         sync.Mutex
	publisher  Publisher
	exchange   string
	routingKey string
	closer     func() error
}

func NewAMQPDeadLetterSink(publisher Publisher, exchange, routingKey string) *AMQPDeadLetterSink {
	return &AMQPDeadLetterSink{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

func (s *AMQPDeadLetterSink) Send(ctx context.Context, letter DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	headers := amqp.Table{
		"x-error-code":   letter.ErrorCode,
		"x-source-queue": letter.SourceQueue,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publisher.Publish(ctx, s.exchange, s.routingKey, amqp.Publishing{
		ContentType:   constants.ContentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		CorrelationId: letter.CorrelationID,
		Timestamp:     time.Now(),
		Headers:       tracing.InjectTraceContext(ctx, headers),
		Body:          body,
	})
}

func (s *AMQPDeadLetterSink) Name() string {
	return constants.DeadLetterRabbitMQ
}

func (s *AMQPDeadLetterSink) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
