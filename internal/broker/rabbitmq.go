package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"legalqa/internal/config"
	"legalqa/internal/constants"
	"legalqa/internal/logger"
)

// URI builds the AMQP connection URI for cfg.
func URI(cfg config.RabbitMQConfig) string {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		Password: cfg.Password,
		Vhost:    vhost,
	}.String()
}

// Session is one AMQP connection with one channel. A session is owned by a
// single worker and is not shared.
type Session struct {
	cfg    config.RabbitMQConfig
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger logger.Logger
}

// Dial opens a connection and channel, applies the prefetch limit and
// declares the topology when configured to.
func Dial(cfg config.RabbitMQConfig, log logger.Logger) (*Session, error) {
	conn, err := amqp.Dial(URI(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = constants.DefaultPrefetchCount
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set prefetch count: %w", err)
	}

	s := &Session{
		cfg:    cfg,
		conn:   conn,
		ch:     ch,
		logger: log,
	}

	if cfg.DeclareTopology {
		if err := s.declareTopology(); err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Session) declareTopology() error {
	if _, err := s.ch.QueueDeclare(s.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", s.cfg.Queue, err)
	}

	if s.cfg.Exchange == "" {
		return nil
	}

	routingKey := s.cfg.RoutingKey
	if routingKey == "" {
		routingKey = s.cfg.Queue
	}
	if err := s.ch.QueueBind(s.cfg.Queue, routingKey, s.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", s.cfg.Queue, s.cfg.Exchange, err)
	}

	s.logger.Infow("Queue bound",
		"queue", s.cfg.Queue,
		"exchange", s.cfg.Exchange,
		"routing_key", routingKey,
	)
	return nil
}

// Consume starts a manual-ack consumer on the configured queue.
func (s *Session) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	if consumerTag == "" {
		consumerTag = s.cfg.ConsumerTag
	}
	deliveries, err := s.ch.Consume(s.cfg.Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", s.cfg.Queue, err)
	}
	return deliveries, nil
}

func (s *Session) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if err := s.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %q/%q: %w", exchange, routingKey, err)
	}
	return nil
}

func (s *Session) IsClosed() bool {
	return s.conn == nil || s.conn.IsClosed()
}

func (s *Session) Close() error {
	var err error
	if s.ch != nil {
		if closeErr := s.ch.Close(); closeErr != nil && closeErr != amqp.ErrClosed {
			err = closeErr
		}
	}
	if s.conn != nil && !s.conn.IsClosed() {
		if closeErr := s.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
