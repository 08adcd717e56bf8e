// Package logging provides structured logging for docctl.
//
// It wraps zap with context-aware methods, a Trace level below Debug,
// encoder-level secret redaction, level-aware sampling and optional
// OpenTelemetry log export through the otelzap bridge.
//
// Logs go to stderr so command output on stdout stays machine readable:
//
//	logger, err := logging.NewLogger(logging.FromConfig(cfg.Logging), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithJobHandle(ctx, "abc123")
//	logger.Info(ctx, "poll finished", zap.String("status", "SUCCESS"))
//
// Correlation fields (trace_id, span_id, job.handle, document.id,
// request.id) are appended from the context on every call.
//
// Tests use NewTestLogger, backed by zaptest/observer.
package logging
