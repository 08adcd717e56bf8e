package apiclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/docctl/internal/logging"
)

// brokenMeter refuses to create any instrument.
type brokenMeter struct{ noop.Meter }

func (brokenMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument rejected")
}

func (brokenMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return nil, errors.New("instrument rejected")
}

func TestNewClientMetrics_LogsRegistrationFailures(t *testing.T) {
	logger := logging.NewTestLogger()

	m := newClientMetrics(brokenMeter{}, logger.Logger)

	logger.AssertLogged(t, zapcore.WarnLevel, "failed to create requests counter")
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to create retries counter")
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to create request duration histogram")

	assert.NotPanics(t, func() {
		m.recordRequest(context.Background(), "GET", "/tasks/{id}", 200, time.Millisecond)
		m.recordRetry(context.Background(), "GET", "/tasks/{id}")
	})
}
