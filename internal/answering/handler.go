package answering

import (
	"context"

	"legalqa/internal/logger"
	"legalqa/internal/retrieval"
	"legalqa/pkg/models"
	"legalqa/pkg/tracing"
)

// Composer answers a question from retrieved fragments.
type Composer interface {
	Compose(ctx context.Context, question string, fragments []retrieval.Fragment) (string, error)
}

// Handler answers one question: rank, then compose. Failures from either
// step are returned unchanged.
type Handler struct {
	ranker       retrieval.Ranker
	composer     Composer
	limit        int
	echoQuestion bool
	logger       logger.Logger
}

type Option func(*Handler)

// WithLimit sets the number of fragments requested from the ranker.
func WithLimit(limit int) Option {
	return func(h *Handler) {
		h.limit = limit
	}
}

// WithQuestionEcho copies the question into the reply payload.
func WithQuestionEcho(enabled bool) Option {
	return func(h *Handler) {
		h.echoQuestion = enabled
	}
}

func NewHandler(ranker retrieval.Ranker, composer Composer, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		ranker:   ranker,
		composer: composer,
		logger:   log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Handle(ctx context.Context, question string) (models.AnswerPayload, error) {
	ctx, span := tracing.StartSpan(ctx, "answering.handle")
	defer span.End()

	fragments, err := h.ranker.Rank(ctx, question, h.limit)
	if err != nil {
		return models.AnswerPayload{}, err
	}

	if len(fragments) == 0 {
		h.logger.InfowCtx(ctx, "No fragments retrieved, answering without context")
	}

	answer, err := h.composer.Compose(ctx, question, fragments)
	if err != nil {
		return models.AnswerPayload{}, err
	}

	payload := models.AnswerPayload{Answer: answer}
	if h.echoQuestion {
		payload.Question = question
	}
	return payload, nil
}
