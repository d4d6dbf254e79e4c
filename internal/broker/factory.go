package broker

import (
	"fmt"
	"strings"

	"legalqa/internal/config"
	"legalqa/internal/constants"
	"legalqa/internal/logger"
)

// NewDeadLetterSink builds the sink named by cfg.RPC.DeadLetter.Type. It
// returns nil when dead-lettering is off. A RabbitMQ sink gets its own
// session so dead letters never share a channel with a worker.
func NewDeadLetterSink(cfg *config.Config, log logger.Logger) (DeadLetterSink, error) {
	dl := cfg.RPC.DeadLetter

	switch strings.ToLower(dl.Type) {
	case constants.DeadLetterNone:
		return nil, nil
	case constants.DeadLetterRabbitMQ:
		rabbitCfg := cfg.Broker.RabbitMQ
		rabbitCfg.DeclareTopology = false
		session, err := Dial(rabbitCfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open dead letter session: %w", err)
		}
		sink := NewAMQPDeadLetterSink(session, dl.Exchange, dl.RoutingKey)
		sink.closer = session.Close
		return sink, nil
	case constants.DeadLetterKafka:
		return NewKafkaDeadLetterSink(cfg.Broker.Kafka, dl.Topic, log), nil
	default:
		return nil, fmt.Errorf("unknown dead letter type: %s", dl.Type)
	}
}
