package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// JobSource returns the current status of a task.
type JobSource interface {
	GetTaskStatus(ctx context.Context, handle string) (Snapshot, error)
}

// JobSourceFunc adapts a function to JobSource.
type JobSourceFunc func(ctx context.Context, handle string) (Snapshot, error)

func (f JobSourceFunc) GetTaskStatus(ctx context.Context, handle string) (Snapshot, error) {
	return f(ctx, handle)
}

// JobObserver receives every snapshot of a task poll session.
type JobObserver func(Snapshot)

// PollJob queries the task immediately and then every opts.Interval until
// the status is terminal or opts.MaxAttempts queries have been made.
// Defaults are 2s and 30 attempts.
//
// A failed query is not retried: onUpdate receives a synthetic ERROR
// snapshot carrying the failure message, and that snapshot is returned
// with the error. On cancellation the wrapped ctx error is returned with the
// last snapshot seen and onUpdate is not called.
func PollJob(ctx context.Context, src JobSource, handle string, onUpdate JobObserver, opts Options) (Snapshot, error) {
	if handle == "" {
		return Snapshot{}, fmt.Errorf("%w: empty task handle", ErrInvalidOptions)
	}
	opts, err := opts.resolve(DefaultJobInterval, DefaultJobMaxAttempts)
	if err != nil {
		return Snapshot{}, err
	}
	if onUpdate == nil {
		onUpdate = func(Snapshot) {}
	}

	ctx = logging.WithJobHandle(ctx, handle)
	ctx, span := opts.Tracer.Start(ctx, "poller.PollJob")
	defer span.End()
	span.SetAttributes(attribute.String("task.handle", handle))

	log := opts.Logger.Named("poller")
	start := time.Now()
	var last Snapshot

	finish := func(outcome string, attempts int) {
		elapsed := time.Since(start)
		opts.Metrics.recordSession(ctx, kindJob, outcome, elapsed)
		span.SetAttributes(
			attribute.Int("poll.attempts", attempts),
			attribute.String("poll.outcome", outcome),
			attribute.String("task.status", string(last.Status)),
		)
		log.Info(ctx, "task poll finished",
			zap.String("outcome", outcome),
			zap.String("status", string(last.Status)),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", elapsed),
		)
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			finish(outcomeCanceled, attempt-1)
			return last, fmt.Errorf("poll task %s: %w", handle, err)
		}

		snap, err := src.GetTaskStatus(ctx, handle)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish(outcomeCanceled, attempt-1)
				return last, fmt.Errorf("poll task %s: %w", handle, ctxErr)
			}
			opts.Metrics.recordTransportFailure(ctx, kindJob)
			span.RecordError(err)
			span.SetStatus(codes.Error, "status query failed")

			last = Snapshot{TaskID: handle, Status: StateError, Error: errorText(err)}
			onUpdate(last)
			finish(outcomeError, attempt)
			return last, fmt.Errorf("query status of task %s: %w", handle, err)
		}

		if snap.TaskID == "" {
			snap.TaskID = handle
		}
		opts.Metrics.recordAttempt(ctx, kindJob)
		log.Debug(ctx, "task status",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", opts.MaxAttempts),
			zap.String("status", string(snap.Status)),
		)

		last = snap
		onUpdate(snap)

		if snap.Status.IsTerminal() {
			finish(outcomeTerminal, attempt)
			return snap, nil
		}
		if attempt >= opts.MaxAttempts {
			finish(outcomeExhausted, attempt)
			return snap, nil
		}

		if err := wait(ctx, opts.Interval); err != nil {
			finish(outcomeCanceled, attempt)
			return last, fmt.Errorf("poll task %s: %w", handle, err)
		}
	}
}
