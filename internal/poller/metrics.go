package poller

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/docctl/internal/poller"

// Poller kinds and session outcomes used as metric attributes.
const (
	kindJob   = "job"
	kindFiles = "files"

	outcomeTerminal  = "terminal"
	outcomeExhausted = "exhausted"
	outcomeError     = "error"
	outcomeCanceled  = "canceled"
)

// Metrics holds the poller instruments.
type Metrics struct {
	attempts          metric.Int64Counter
	transportFailures metric.Int64Counter
	sessionDuration   metric.Float64Histogram
}

// NewMetrics creates the poller instruments on meter. Instruments that fail
// to register are logged, left nil and skipped.
func NewMetrics(meter metric.Meter, logger *logging.Logger) *Metrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Metrics{}
	ctx := context.Background()
	var err error

	m.attempts, err = meter.Int64Counter(
		"docctl.poller.attempts_total",
		metric.WithDescription("Status queries that returned a snapshot, by poller kind."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create attempts counter", zap.Error(err))
	}
	m.transportFailures, err = meter.Int64Counter(
		"docctl.poller.transport_failures_total",
		metric.WithDescription("Status queries that failed before a snapshot was read."),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create transport failures counter", zap.Error(err))
	}
	m.sessionDuration, err = meter.Float64Histogram(
		"docctl.poller.session_duration_seconds",
		metric.WithDescription("Wall time of a poll session, by poller kind and outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create session duration histogram", zap.Error(err))
	}
	return m
}

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// defaultMetrics registers the shared instruments on the global meter
// provider. Registration errors go to the first caller's logger.
func defaultMetrics(logger *logging.Logger) *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetrics(otel.Meter(instrumentationName), logger)
	})
	return globalMetrics
}

func (m *Metrics) recordAttempt(ctx context.Context, kind string) {
	if m.attempts != nil {
		m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Metrics) recordTransportFailure(ctx context.Context, kind string) {
	if m.transportFailures != nil {
		m.transportFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Metrics) recordSession(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	if m.sessionDuration != nil {
		m.sessionDuration.Record(context.WithoutCancel(ctx), elapsed.Seconds(), metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}
