package poller

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentSessions bounds the poll sessions WatchJobs runs at once.
const maxConcurrentSessions = 8

// WatchJobs polls several tasks concurrently, one independent session per
// distinct handle. onUpdate is called from multiple goroutines; calls for a
// single handle stay in arrival order.
//
// A failing session does not stop the others. The returned map holds the
// final snapshot of every handle, and the error is the first session error.
func WatchJobs(ctx context.Context, src JobSource, handles []string, onUpdate func(handle string, snap Snapshot), opts Options) (map[string]Snapshot, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]Snapshot, len(handles))
		g       errgroup.Group
		seen    = make(map[string]bool, len(handles))
	)
	g.SetLimit(maxConcurrentSessions)

	for _, handle := range handles {
		if seen[handle] {
			continue
		}
		seen[handle] = true

		g.Go(func() error {
			observer := func(s Snapshot) {
				if onUpdate != nil {
					onUpdate(handle, s)
				}
			}
			snap, err := PollJob(ctx, src, handle, observer, opts)

			mu.Lock()
			results[handle] = snap
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	return results, err
}
