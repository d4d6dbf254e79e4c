package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"legalqa/internal/broker"
	"legalqa/internal/constants"
	"legalqa/internal/logger"
	apperrors "legalqa/pkg/errors"
	"legalqa/pkg/logging"
	"legalqa/pkg/metrics"
	"legalqa/pkg/models"
	"legalqa/pkg/retry"
	"legalqa/pkg/tracing"
)

// ErrDeliveriesClosed is returned by Serve when the broker closes the
// delivery channel while the listener is still expected to run.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Delivery outcomes, used as metric labels.
const (
	outcomeAnswered       = "answered"
	outcomeNoReply        = "no_reply"
	outcomeDecodeFailure  = "decode_failure"
	outcomeFailed         = "failed"
	outcomePublishFailure = "publish_failure"
	outcomePanic          = "panic"
)

// Answerer answers a single question.
type Answerer interface {
	Handle(ctx context.Context, question string) (models.AnswerPayload, error)
}

type Options struct {
	Queue          string
	ErrorReplies   bool
	Retry          retry.Policy
	PublishTimeout time.Duration
}

// Listener turns deliveries into replies. It processes at most one delivery
// at a time and settles every delivery it starts processing exactly once.
type Listener struct {
	handler     Answerer
	publisher   broker.Publisher
	deadLetters broker.DeadLetterSink
	opts        Options
	sem         *semaphore.Weighted
	logger      logger.Logger
}

// NewListener builds a listener. deadLetters may be nil.
func NewListener(handler Answerer, publisher broker.Publisher, deadLetters broker.DeadLetterSink, opts Options, log logger.Logger) *Listener {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = constants.DefaultPublishTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Listener{
		handler:     handler,
		publisher:   publisher,
		deadLetters: deadLetters,
		opts:        opts,
		sem:         semaphore.NewWeighted(1),
		logger:      log,
	}
}

// Serve handles deliveries until ctx is done or the channel closes.
func (l *Listener) Serve(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			l.HandleDelivery(ctx, d)
		}
	}
}

// HandleDelivery processes one delivery and acknowledges it. Once processing
// has started it runs to completion even if ctx is canceled, bounded by the
// retrieval and generation timeouts. A delivery that arrives after ctx is
// done is returned to the queue unprocessed.
func (l *Listener) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		l.requeue(ctx, d, err)
		return
	}
	defer l.sem.Release(1)

	ctx = context.WithoutCancel(ctx)
	ctx = logging.WithMessageID(ctx, uuid.NewString())
	ctx = logging.WithCorrelationID(ctx, d.CorrelationId)
	ctx = logging.WithDeliveryTag(ctx, d.DeliveryTag)

	ctx, span := tracing.StartSpanFromDelivery(ctx, "rpc.handle", d.Headers)
	defer span.End()
	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	start := time.Now()
	outcome := outcomePanic
	defer func() {
		l.ack(ctx, d)

		metrics.IncDelivery(outcome)
		metrics.ObserveProcessingDuration(time.Since(start), outcome)
		span.SetAttributes(attribute.String("rpc.outcome", outcome))

		l.logger.InfowCtx(ctx, "Delivery processed",
			"outcome", outcome,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	outcome = l.process(ctx, d)
}

func (l *Listener) process(ctx context.Context, d amqp.Delivery) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanic(r)
			l.logger.ErrorwCtx(ctx, "Panic recovered during delivery processing",
				"error", err,
			)
			l.fail(ctx, d, err)
			outcome = outcomePanic
		}
	}()

	q, err := models.DecodeQuestion(d.Body)
	if err != nil {
		decodeErr := apperrors.Wrap(err, apperrors.ErrDecode).AsFatal()
		l.logger.WarnwCtx(ctx, "Discarding undecodable delivery",
			"error", decodeErr,
			"body_size", len(d.Body),
		)
		l.deadLetter(ctx, d, decodeErr)
		return outcomeDecodeFailure
	}

	payload, err := l.answer(ctx, q.Question)
	if err != nil {
		l.fail(ctx, d, err)
		return outcomeFailed
	}

	if d.ReplyTo == "" {
		l.logger.InfowCtx(ctx, "No reply-to on delivery, answer dropped")
		return outcomeNoReply
	}

	if err := l.reply(ctx, d, "answer", payload); err != nil {
		l.logger.ErrorwCtx(ctx, "Failed to publish answer",
			"error", err,
			"reply_to", d.ReplyTo,
		)
		return outcomePublishFailure
	}

	return outcomeAnswered
}

func (l *Listener) answer(ctx context.Context, question string) (models.AnswerPayload, error) {
	var payload models.AnswerPayload

	err := retry.RetryWithCallback(ctx, l.opts.Retry, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperrors.RecoverPanic(r)
				l.logger.ErrorwCtx(ctx, "Panic recovered while answering",
					"error", err,
				)
			}
		}()

		p, err := l.handler.Handle(ctx, question)
		if err != nil {
			return err
		}
		payload = p
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt(constants.ServiceName, apperrors.Code(err))
		l.logger.WarnwCtx(ctx, "Retrying question",
			"attempt", attempt,
			"max_attempts", l.opts.Retry.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
		)
	})

	return payload, err
}

// fail handles a question that could not be answered.
func (l *Listener) fail(ctx context.Context, d amqp.Delivery, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, apperrors.Code(err))

	l.logger.ErrorwCtx(ctx, "Failed to answer question",
		"error", err,
		"error_code", apperrors.Code(err),
	)

	l.deadLetter(ctx, d, err)

	if !l.opts.ErrorReplies || d.ReplyTo == "" {
		return
	}
	resp := apperrors.ToErrorResponse(err)
	payload := models.ErrorPayload{
		Error:     fmt.Sprint(resp["error"]),
		ErrorCode: fmt.Sprint(resp["error_code"]),
	}
	if pubErr := l.reply(ctx, d, "error", payload); pubErr != nil {
		l.logger.ErrorwCtx(ctx, "Failed to publish error reply",
			"error", pubErr,
			"reply_to", d.ReplyTo,
		)
	}
}

func (l *Listener) reply(ctx context.Context, d amqp.Delivery, kind string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		metrics.IncReply(kind, "failure")
		return apperrors.Wrap(err, apperrors.ErrPublish).AsFatal()
	}

	pubCtx, cancel := context.WithTimeout(ctx, l.opts.PublishTimeout)
	defer cancel()

	err = l.publisher.Publish(pubCtx, "", d.ReplyTo, amqp.Publishing{
		ContentType:   constants.ContentTypeJSON,
		CorrelationId: d.CorrelationId,
		Timestamp:     time.Now(),
		Headers:       tracing.InjectTraceContext(ctx, nil),
		Body:          body,
	})
	if err != nil {
		metrics.IncReply(kind, "failure")
		return apperrors.Wrap(err, apperrors.ErrPublish)
	}

	metrics.IncReply(kind, "success")
	return nil
}

func (l *Listener) deadLetter(ctx context.Context, d amqp.Delivery, cause error) {
	if l.deadLetters == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, l.opts.PublishTimeout)
	defer cancel()

	code := apperrors.Code(cause)
	err := l.deadLetters.Send(sendCtx, broker.DeadLetter{
		Body:          d.Body,
		CorrelationID: d.CorrelationId,
		ReplyTo:       d.ReplyTo,
		ErrorCode:     code,
		Reason:        cause.Error(),
		SourceQueue:   l.opts.Queue,
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		l.logger.ErrorwCtx(ctx, "Failed to dead-letter delivery",
			"error", err,
			"sink", l.deadLetters.Name(),
		)
		return
	}

	metrics.IncDeadLetter(l.deadLetters.Name(), code)
	l.logger.InfowCtx(ctx, "Delivery dead-lettered",
		"sink", l.deadLetters.Name(),
		"error_code", code,
	)
}

func (l *Listener) ack(ctx context.Context, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		metrics.IncAck("failure")
		l.logger.ErrorwCtx(ctx, "Failed to acknowledge delivery",
			"error", err,
		)
		return
	}
	metrics.IncAck("success")
}

func (l *Listener) requeue(ctx context.Context, d amqp.Delivery, cause error) {
	l.logger.WarnwCtx(ctx, "Returning delivery to queue unprocessed",
		"reason", cause,
		"delivery_tag", d.DeliveryTag,
	)
	if err := d.Nack(false, true); err != nil {
		l.logger.ErrorwCtx(ctx, "Failed to requeue delivery",
			"error", err,
		)
	}
}
