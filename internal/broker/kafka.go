package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"legalqa/internal/config"
	"legalqa/internal/constants"
	"legalqa/internal/logger"
	"legalqa/pkg/tracing"
)

// kafkaWriter is the subset of *kafka.Writer the sink needs.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDeadLetterSink writes dead letters as JSON to a Kafka topic, keyed by
// correlation id.
type KafkaDeadLetterSink struct {
	writer kafkaWriter
	topic  string
	logger logger.Logger
}

func NewKafkaDeadLetterSink(cfg config.KafkaConfig, topic string, log logger.Logger) *KafkaDeadLetterSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaDeadLetterSink{writer: w, topic: topic, logger: log}
}

func (s *KafkaDeadLetterSink) Send(ctx context.Context, letter DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	headers := []kafka.Header{
		{Key: "error_code", Value: []byte(letter.ErrorCode)},
	}
	headers = tracing.InjectKafkaTraceContext(ctx, headers)

	err = s.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   s.topic,
			Key:     []byte(letter.CorrelationID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

func (s *KafkaDeadLetterSink) Name() string {
	return constants.DeadLetterKafka
}

func (s *KafkaDeadLetterSink) Close() error {
	return s.writer.Close()
}
