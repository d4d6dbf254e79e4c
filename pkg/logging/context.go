package logging

import (
	"context"
	"strconv"
)

type contextKey string

const (
	TraceIDKey       contextKey = "trace_id"
	MessageIDKey     contextKey = "message_id"
	ServiceNameKey   contextKey = "service_name"
	CorrelationIDKey contextKey = "correlation_id"
	DeliveryTagKey   contextKey = "delivery_tag"
	WorkerIDKey      contextKey = "worker_id"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

// WithCorrelationID records the requester's correlation id for log lines only.
// The value is never parsed.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

func WithDeliveryTag(ctx context.Context, tag uint64) context.Context {
	return context.WithValue(ctx, DeliveryTagKey, tag)
}

func WithWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, WorkerIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetMessageID(ctx context.Context) string {
	return stringValue(ctx, MessageIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

func GetCorrelationID(ctx context.Context) string {
	return stringValue(ctx, CorrelationIDKey)
}

func GetDeliveryTag(ctx context.Context) (uint64, bool) {
	tag, ok := ctx.Value(DeliveryTagKey).(uint64)
	return tag, ok
}

func GetWorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(WorkerIDKey).(int)
	return id, ok
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 12)

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, string(TraceIDKey), traceID)
	}

	if messageID := GetMessageID(ctx); messageID != "" {
		fields = append(fields, string(MessageIDKey), messageID)
	}

	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		fields = append(fields, string(CorrelationIDKey), correlationID)
	}

	if tag, ok := GetDeliveryTag(ctx); ok {
		fields = append(fields, string(DeliveryTagKey), strconv.FormatUint(tag, 10))
	}

	if id, ok := GetWorkerID(ctx); ok {
		fields = append(fields, string(WorkerIDKey), id)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, string(ServiceNameKey), serviceName)
	}

	return fields
}
