package apiclient

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

type clientMetrics struct {
	requests metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

var (
	metricsOnce   sync.Once
	sharedMetrics *clientMetrics
)

// defaultMetrics registers the shared instruments on the global meter
// provider. Registration errors go to the first client's logger.
func defaultMetrics(logger *logging.Logger) *clientMetrics {
	metricsOnce.Do(func() {
		sharedMetrics = newClientMetrics(otel.Meter(instrumentationName), logger)
	})
	return sharedMetrics
}

func newClientMetrics(meter metric.Meter, logger *logging.Logger) *clientMetrics {
	m := &clientMetrics{}
	ctx := context.Background()
	var err error

	m.requests, err = meter.Int64Counter(
		"docctl.api.requests_total",
		metric.WithDescription("API requests by method, route and status code. Status 0 means no response."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create requests counter", zap.Error(err))
	}
	m.retries, err = meter.Int64Counter(
		"docctl.api.retries_total",
		metric.WithDescription("Requests re-sent after a transport failure."),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create retries counter", zap.Error(err))
	}
	m.duration, err = meter.Float64Histogram(
		"docctl.api.request_duration_seconds",
		metric.WithDescription("API request duration including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create request duration histogram", zap.Error(err))
	}
	return m
}

func (m *clientMetrics) recordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (m *clientMetrics) recordRetry(ctx context.Context, method, route string) {
	if m.retries != nil {
		m.retries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
		))
	}
}
