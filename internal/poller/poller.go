// Package poller watches server-side work by repeated status queries.
//
// PollJob follows a whole task (PENDING, STARTED, then SUCCESS, FAILURE or
// REVOKED). PollFileStatuses follows the per-file ingestion of a document
// until every file is completed or failed. Both report each snapshot to an
// observer in arrival order, stop at the first terminal state or when the
// attempt budget runs out, and honor context cancellation during the query
// and the wait.
//
// Running out of attempts is not an error: the last snapshot is returned
// and callers inspect its state to tell "finished" from "gave up".
package poller

import (
	"context"
	"errors"
	"time"
)

// messager is implemented by errors that carry a server-supplied message,
// such as the API client's *APIError.
type messager interface {
	Message() string
}

// errorText prefers the server's message over the error chain text.
func errorText(err error) string {
	var m messager
	if errors.As(err, &m) {
		if msg := m.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
