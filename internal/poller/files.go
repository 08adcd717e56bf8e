package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FileSource returns the per-file statuses of a document.
type FileSource interface {
	GetDocumentFilesStatus(ctx context.Context, documentID string) (FileSnapshot, error)
}

// FileSourceFunc adapts a function to FileSource.
type FileSourceFunc func(ctx context.Context, documentID string) (FileSnapshot, error)

func (f FileSourceFunc) GetDocumentFilesStatus(ctx context.Context, documentID string) (FileSnapshot, error) {
	return f(ctx, documentID)
}

// FileObserver receives every snapshot of a file poll session.
type FileObserver func(FileSnapshot)

// PollFileStatuses queries the document's file statuses immediately and then
// every opts.Interval until every file is terminal or opts.MaxAttempts
// snapshots have been read. Defaults are 3s and 20 attempts.
//
// Failed queries are retried after the same interval and do not use up
// attempts. After more than opts.TransportRetries consecutive failures
// (default 3) onUpdate receives a single record carrying only the error
// text, and that snapshot is returned with a nil error. On cancellation the
// wrapped ctx error is returned with the last snapshot seen.
//
// The failure counter resets on every successful read, so a session issues
// at most opts.MaxAttempts * (opts.TransportRetries + 1) queries: 80 with the
// defaults.
func PollFileStatuses(ctx context.Context, src FileSource, documentID string, onUpdate FileObserver, opts Options) (FileSnapshot, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: empty document id", ErrInvalidOptions)
	}
	opts, err := opts.resolve(DefaultFileInterval, DefaultFileMaxAttempts)
	if err != nil {
		return nil, err
	}
	if onUpdate == nil {
		onUpdate = func(FileSnapshot) {}
	}

	ctx = logging.WithDocumentID(ctx, documentID)
	ctx, span := opts.Tracer.Start(ctx, "poller.PollFileStatuses")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	log := opts.Logger.Named("poller")
	start := time.Now()

	var (
		last        FileSnapshot
		attempts    int
		consecutive int
	)

	finish := func(outcome string) {
		elapsed := time.Since(start)
		opts.Metrics.recordSession(ctx, kindFiles, outcome, elapsed)
		processing, completed, failed := last.Counts()
		span.SetAttributes(
			attribute.Int("poll.attempts", attempts),
			attribute.String("poll.outcome", outcome),
			attribute.Int("files.completed", completed),
			attribute.Int("files.failed", failed),
		)
		log.Info(ctx, "file poll finished",
			zap.String("outcome", outcome),
			zap.Int("attempts", attempts),
			zap.Int("processing", processing),
			zap.Int("completed", completed),
			zap.Int("failed", failed),
			zap.Duration("elapsed", elapsed),
		)
	}

	for {
		if err := ctx.Err(); err != nil {
			finish(outcomeCanceled)
			return last, fmt.Errorf("poll files of document %s: %w", documentID, err)
		}

		files, err := src.GetDocumentFilesStatus(ctx, documentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish(outcomeCanceled)
				return last, fmt.Errorf("poll files of document %s: %w", documentID, ctxErr)
			}
			opts.Metrics.recordTransportFailure(ctx, kindFiles)
			consecutive++

			if consecutive > opts.TransportRetries {
				span.RecordError(err)
				last = FileSnapshot{{Error: errorText(err)}}
				onUpdate(last)
				finish(outcomeError)
				return last, nil
			}
			log.Warn(ctx, "file status query failed, retrying",
				zap.Int("failures", consecutive),
				zap.Int("max_retries", opts.TransportRetries),
				zap.Error(err),
			)
		} else {
			consecutive = 0
			attempts++
			opts.Metrics.recordAttempt(ctx, kindFiles)

			processing, completed, failed := files.Counts()
			log.Debug(ctx, "file statuses",
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", opts.MaxAttempts),
				zap.Int("processing", processing),
				zap.Int("completed", completed),
				zap.Int("failed", failed),
			)

			last = files
			onUpdate(files)

			if files.Done() {
				finish(outcomeTerminal)
				return files, nil
			}
			if attempts >= opts.MaxAttempts {
				finish(outcomeExhausted)
				return files, nil
			}
		}

		if err := wait(ctx, opts.Interval); err != nil {
			finish(outcomeCanceled)
			return last, fmt.Errorf("poll files of document %s: %w", documentID, err)
		}
	}
}
