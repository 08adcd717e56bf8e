package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	jobCtxKey      struct{}
	documentCtxKey struct{}
	requestCtxKey  struct{}
	loggerCtxKey   struct{}
)

// maxIDLen bounds identifiers copied into log fields.
const maxIDLen = 128

// ContextFields extracts correlation fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if h := JobHandleFromContext(ctx); h != "" {
		fields = append(fields, zap.String("job.handle", h))
	}
	if id := DocumentIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("document.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

// WithJobHandle tags ctx with the task handle being polled.
func WithJobHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, jobCtxKey{}, truncateID(handle))
}

// JobHandleFromContext returns the task handle, or "".
func JobHandleFromContext(ctx context.Context) string {
	h, _ := ctx.Value(jobCtxKey{}).(string)
	return h
}

// WithDocumentID tags ctx with the document whose files are being polled.
func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, documentCtxKey{}, truncateID(id))
}

// DocumentIDFromContext returns the document id, or "".
func DocumentIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(documentCtxKey{}).(string)
	return id
}

// WithRequestID tags ctx with the X-Request-ID of an outgoing request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, truncateID(id))
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}

func truncateID(s string) string {
	if len(s) > maxIDLen {
		return s[:maxIDLen]
	}
	return s
}
