package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore samples the levels named in cfg.Levels, each with its own
// budget. Other levels, and Error and above, pass through untouched.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	samplers := make(map[zapcore.Level]zapcore.Core, len(cfg.Levels))
	for lvl, s := range cfg.Levels {
		if lvl >= zapcore.ErrorLevel {
			continue
		}
		samplers[lvl] = zapcore.NewSamplerWithOptions(core, cfg.Tick, s.Initial, s.Thereafter)
	}
	return &perLevelCore{Core: core, samplers: samplers}
}

// perLevelCore dispatches Check to a level's sampler when one exists.
type perLevelCore struct {
	zapcore.Core
	samplers map[zapcore.Level]zapcore.Core
}

func (c *perLevelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s, ok := c.samplers[e.Level]; ok {
		return s.Check(e, ce)
	}
	return c.Core.Check(e, ce)
}

func (c *perLevelCore) With(fields []zapcore.Field) zapcore.Core {
	samplers := make(map[zapcore.Level]zapcore.Core, len(c.samplers))
	for lvl, s := range c.samplers {
		samplers[lvl] = s.With(fields)
	}
	return &perLevelCore{Core: c.Core.With(fields), samplers: samplers}
}
