package rpc

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"legalqa/internal/broker"
	"legalqa/internal/logger"
	"legalqa/pkg/logging"
)

// Session is a worker's private broker connection.
type Session interface {
	broker.Publisher
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	IsClosed() bool
	Close() error
}

// Dialer opens a new session.
type Dialer func() (Session, error)

// Worker owns one session and one listener. Concurrency comes from running
// several workers, never from parallelism inside one.
type Worker struct {
	id          int
	dial        Dialer
	consumerTag string
	handler     Answerer
	deadLetters broker.DeadLetterSink
	opts        Options
	logger      logger.Logger

	mu      sync.RWMutex
	session Session
}

func NewWorker(id int, dial Dialer, consumerTag string, handler Answerer, deadLetters broker.DeadLetterSink, opts Options, log logger.Logger) *Worker {
	return &Worker{
		id:          id,
		dial:        dial,
		consumerTag: consumerTag,
		handler:     handler,
		deadLetters: deadLetters,
		opts:        opts,
		logger:      log,
	}
}

// Run connects, consumes and serves until ctx is done. The session is
// closed on return.
func (w *Worker) Run(ctx context.Context) error {
	ctx = logging.WithWorkerID(ctx, w.id)

	session, err := w.dial()
	if err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}
	w.setSession(session)
	defer func() {
		if err := session.Close(); err != nil {
			w.logger.WarnwCtx(ctx, "Failed to close broker session",
				"error", err,
			)
		}
	}()

	tag := fmt.Sprintf("%s-%d", w.consumerTag, w.id)
	deliveries, err := session.Consume(tag)
	if err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}

	listener := NewListener(w.handler, session, w.deadLetters, w.opts, w.logger)

	w.logger.InfowCtx(ctx, "Waiting for messages",
		"queue", w.opts.Queue,
		"consumer_tag", tag,
	)

	if err := listener.Serve(ctx, deliveries); err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}

	w.logger.InfowCtx(ctx, "Worker stopped")
	return nil
}

func (w *Worker) setSession(s Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = s
}

// Session returns the current session, nil before Run has connected.
func (w *Worker) Session() Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session
}

// Pool runs a fixed set of workers. The first worker to fail stops the rest.
type Pool struct {
	workers []*Worker
}

func NewPool(workers ...*Worker) *Pool {
	return &Pool{workers: workers}
}

func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	return g.Wait()
}

// Sessions returns the sessions of workers that have connected.
func (p *Pool) Sessions() []Session {
	out := make([]Session, 0, len(p.workers))
	for _, w := range p.workers {
		if s := w.Session(); s != nil {
			out = append(out, s)
		}
	}
	return out
}
