package bootstrap

import (
	"context"
	"fmt"

	"legalqa/internal/broker"
	"legalqa/internal/config"
	"legalqa/internal/logger"
)

// Base holds what every process needs regardless of how it answers: the
// configuration, the logger and the optional dead letter sink.
type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	DeadLetters broker.DeadLetterSink
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitDeadLetters opens the configured sink. DeadLetters stays nil when
// dead-lettering is disabled.
func (b *Base) InitDeadLetters() error {
	sink, err := broker.NewDeadLetterSink(b.Config, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create dead letter sink: %w", err)
	}
	b.DeadLetters = sink
	if sink != nil {
		b.Logger.Infow("Dead letter sink ready", "sink", sink.Name())
	}
	return nil
}

func (b *Base) ShutdownDeadLetters() []error {
	if b.DeadLetters == nil {
		return nil
	}
	if err := b.DeadLetters.Close(); err != nil {
		return []error{fmt.Errorf("dead letter sink close error: %w", err)}
	}
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownDeadLetters()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
