package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(cfg SamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	return &Logger{zap: zap.New(newSampledCore(core, cfg)), config: NewDefaultConfig()}, observed
}

func TestSampling_PerLevelBudgets(t *testing.T) {
	logger, observed := sampledLogger(SamplingConfig{
		Enabled: true,
		Tick:    time.Minute,
		Levels: map[zapcore.Level]LevelSampling{
			zapcore.DebugLevel: {Initial: 3, Thereafter: 0},
			zapcore.ErrorLevel: {Initial: 1, Thereafter: 0},
		},
	})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		logger.Debug(ctx, "attempt")
		logger.Info(ctx, "tick")
		logger.Error(ctx, "boom")
	}

	assert.Equal(t, 3, observed.FilterMessage("attempt").Len())
	assert.Equal(t, 10, observed.FilterMessage("tick").Len(), "unconfigured levels pass through")
	assert.Equal(t, 10, observed.FilterMessage("boom").Len(), "errors are never sampled")
}

func TestSampling_Disabled(t *testing.T) {
	logger, observed := sampledLogger(SamplingConfig{
		Enabled: false,
		Levels:  map[zapcore.Level]LevelSampling{zapcore.DebugLevel: {Initial: 1}},
	})

	for i := 0; i < 5; i++ {
		logger.Debug(context.Background(), "attempt")
	}
	assert.Equal(t, 5, observed.Len())
}

func TestSampling_WithKeepsSampling(t *testing.T) {
	logger, observed := sampledLogger(SamplingConfig{
		Enabled: true,
		Tick:    time.Minute,
		Levels:  map[zapcore.Level]LevelSampling{zapcore.DebugLevel: {Initial: 2}},
	})

	child := logger.With(zap.String("kind", "files"))
	for i := 0; i < 5; i++ {
		child.Debug(context.Background(), "attempt")
	}
	assert.Equal(t, 2, observed.Len())
}
