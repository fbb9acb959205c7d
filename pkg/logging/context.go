package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey       contextKey = "trace_id"
	TaskIDKey        contextKey = "task_id"
	PublisherIDKey   contextKey = "publisher_id"
	PublisherTypeKey contextKey = "publisher_type"
	ServiceNameKey   contextKey = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskIDKey, taskID)
}

// WithPublisher scopes log lines to one publisher iteration of a dispatch.
func WithPublisher(ctx context.Context, publisherID, publisherType string) context.Context {
	ctx = context.WithValue(ctx, PublisherIDKey, publisherID)
	return context.WithValue(ctx, PublisherTypeKey, publisherType)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetPublisherID(ctx context.Context) string {
	return stringValue(ctx, PublisherIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

// GetLogFields returns the context values as alternating key/value pairs
// suitable for a sugared logger.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []contextKey{TraceIDKey, TaskIDKey, PublisherIDKey, PublisherTypeKey, ServiceNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}

	return fields
}
