package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalqa/internal/logger"
	apperrors "legalqa/pkg/errors"
)

func corpus(now time.Time) []memoryDoc {
	enacted := now.AddDate(-3, 0, 0)
	return []memoryDoc{
		{ID: "perban", Title: "Peraturan Badan tentang Pajak", Type: TypeAgencyRegulation, EnactedAt: enacted, Text: "ketentuan pajak daerah oleh badan"},
		{ID: "uu", Title: "Undang-Undang tentang Pajak", Type: TypeStatute, EnactedAt: enacted, Text: "ketentuan pajak daerah oleh undang-undang"},
		{ID: "perda", Title: "Peraturan tentang Retribusi Parkir", Type: TypeRegionalRegulation, EnactedAt: now.AddDate(0, -3, 0), Text: []string{"retribusi parkir", "lampiran"}},
		{ID: "other", Title: "Surat Edaran", Type: DocumentType("SE"), EnactedAt: enacted, Text: "surat edaran umum"},
	}
}

func TestIndexRanker_StatuteRanksAboveAgencyRegulation(t *testing.T) {
	now := time.Now()
	index := &memoryIndex{docs: corpus(now), now: now}
	ranker := NewRanker(index, 5, time.Second, logger.NopLogger())

	fragments, err := ranker.Rank(context.Background(), "pajak daerah", 2)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, Fragment("ketentuan pajak daerah oleh undang-undang"), fragments[0])
	assert.Equal(t, Fragment("ketentuan pajak daerah oleh badan"), fragments[1])
}

func TestIndexRanker_DefaultLimit(t *testing.T) {
	now := time.Now()
	index := &memoryIndex{docs: corpus(now), now: now}
	ranker := NewRanker(index, 0, 0, logger.NopLogger())

	_, err := ranker.Rank(context.Background(), "pajak", 0)
	require.NoError(t, err)
	require.Len(t, index.queries, 1)
	assert.Equal(t, 5, index.queries[0].Size)
	assert.EqualValues(t, 5, index.queries[0].Body["size"])
}

func TestIndexRanker_LimitIsCapped(t *testing.T) {
	index := &memoryIndex{now: time.Now()}
	ranker := NewRanker(index, 5, time.Second, logger.NopLogger())

	_, err := ranker.Rank(context.Background(), "pajak", 1000)
	require.NoError(t, err)
	assert.Equal(t, 50, index.queries[0].Size)
}

func TestIndexRanker_FirstPieceOfMultiPartText(t *testing.T) {
	now := time.Now()
	index := &memoryIndex{docs: corpus(now), now: now}
	ranker := NewRanker(index, 5, time.Second, logger.NopLogger())

	fragments, err := ranker.Rank(context.Background(), "retribusi parkir", 1)
	require.NoError(t, err)
	assert.Equal(t, []Fragment{"retribusi parkir"}, fragments)
}

func TestIndexRanker_Idempotent(t *testing.T) {
	now := time.Now()
	index := &memoryIndex{docs: corpus(now), now: now}
	ranker := NewRanker(index, 5, time.Second, logger.NopLogger())

	first, err := ranker.Rank(context.Background(), "pajak daerah", 5)
	require.NoError(t, err)
	second, err := ranker.Rank(context.Background(), "pajak daerah", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIndexRanker_EmptyResult(t *testing.T) {
	index := &memoryIndex{now: time.Now()}
	ranker := NewRanker(index, 5, time.Second, logger.NopLogger())

	fragments, err := ranker.Rank(context.Background(), "apa saja", 5)
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestIndexRanker_IndexErrorIsRetrievalFailure(t *testing.T) {
	index := &memoryIndex{err: errors.New("connection refused")}
	ranker := NewRanker(index, 5, time.Second, logger.NopLogger())

	_, err := ranker.Rank(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetrieval(err))
	assert.ErrorContains(t, err, "connection refused")

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.IsRetryable())
}

type slowIndex struct{}

func (slowIndex) Search(ctx context.Context, query Query) ([]Hit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestIndexRanker_TimeoutIsRetrievalFailure(t *testing.T) {
	ranker := NewRanker(slowIndex{}, 5, 20*time.Millisecond, logger.NopLogger())

	_, err := ranker.Rank(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetrieval(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIndexRanker_CanceledIsNotRetryable(t *testing.T) {
	ranker := NewRanker(slowIndex{}, 5, time.Second, logger.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ranker.Rank(ctx, "q", 5)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.False(t, appErr.IsRetryable())
}
