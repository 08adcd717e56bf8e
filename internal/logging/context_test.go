package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func fieldMap(ctx context.Context) map[string]string {
	m := map[string]string{}
	for _, f := range ContextFields(ctx) {
		m[f.Key] = f.String
	}
	return m
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_Identifiers(t *testing.T) {
	ctx := WithJobHandle(context.Background(), "abc123")
	ctx = WithDocumentID(ctx, "42")
	ctx = WithRequestID(ctx, "2f1c")

	m := fieldMap(ctx)
	assert.Equal(t, "abc123", m["job.handle"])
	assert.Equal(t, "42", m["document.id"])
	assert.Equal(t, "2f1c", m["request.id"])
}

func TestContextFields_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "poll")
	defer span.End()

	m := fieldMap(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), m["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), m["span_id"])
}

func TestContextIDs_Truncated(t *testing.T) {
	long := strings.Repeat("x", maxIDLen+20)
	ctx := WithJobHandle(context.Background(), long)
	assert.Len(t, JobHandleFromContext(ctx), maxIDLen)
}

func TestFromContext(t *testing.T) {
	nop := FromContext(context.Background())
	require.NotNil(t, nop)
	assert.False(t, nop.Enabled(TraceLevel))

	tl := NewTestLogger()
	got := FromContext(WithLogger(context.Background(), tl.Logger))
	assert.Same(t, tl.Logger, got)
}
