package poller

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

func TestNewMetrics_LogsRegistrationFailures(t *testing.T) {
	logger := logging.NewTestLogger()

	m := NewMetrics(brokenMeter{}, logger.Logger)

	logger.AssertLogged(t, zapcore.WarnLevel, "failed to create attempts counter")
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to create transport failures counter")
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to create session duration histogram")

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.recordAttempt(ctx, kindJob)
		m.recordTransportFailure(ctx, kindFiles)
		m.recordSession(ctx, kindJob, outcomeTerminal, time.Second)
	}, "missing instruments are skipped")
}

func TestNewMetrics_NoWarningsOnWorkingMeter(t *testing.T) {
	logger := logging.NewTestLogger()

	NewMetrics(noop.NewMeterProvider().Meter("test"), logger.Logger)

	assert.Empty(t, logger.All())
}
