package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields_Empty(t *testing.T) {
	assert.Empty(t, GetLogFields(context.Background()))
}

func TestGetLogFields_DeliveryContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithServiceName(ctx, "answer-worker")
	ctx = WithMessageID(ctx, "m-1")
	ctx = WithCorrelationID(ctx, "corr-1")
	ctx = WithDeliveryTag(ctx, 42)
	ctx = WithWorkerID(ctx, 0)

	assert.Equal(t, []interface{}{
		"message_id", "m-1",
		"correlation_id", "corr-1",
		"delivery_tag", "42",
		"worker_id", 0,
		"service_name", "answer-worker",
	}, GetLogFields(ctx))
}

func TestGetDeliveryTag_Absent(t *testing.T) {
	_, ok := GetDeliveryTag(context.Background())
	assert.False(t, ok)
}
