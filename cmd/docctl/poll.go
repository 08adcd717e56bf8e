package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/poller"
	"github.com/fyrsmithlabs/docctl/internal/tui"
)

// ErrPollIncomplete is returned when a poll ran out of attempts before the
// work reached a terminal state.
var ErrPollIncomplete = errors.New("gave up waiting")

var (
	// poll flags shared by watch commands
	pollInterval    time.Duration
	pollMaxAttempts int
	pollTUI         bool
)

// addPollFlags registers the shared poll flags on cmd.
func addPollFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&pollInterval, "interval", 0, "Time between status queries (default from config)")
	cmd.Flags().IntVar(&pollMaxAttempts, "max-attempts", 0, "Maximum status queries (default from config)")
	cmd.Flags().BoolVar(&pollTUI, "tui", false, "Show a terminal dashboard while waiting")
}

func (a *app) jobOptions() poller.Options {
	return a.withPollFlags(poller.JobOptions(a.cfg.Poller))
}

func (a *app) fileOptions() poller.Options {
	return a.withPollFlags(poller.FileOptions(a.cfg.Poller))
}

func (a *app) withPollFlags(opts poller.Options) poller.Options {
	if pollInterval > 0 {
		opts.Interval = pollInterval
	}
	if pollMaxAttempts > 0 {
		opts.MaxAttempts = pollMaxAttempts
	}
	opts.Logger = a.logger
	return opts
}

func (a *app) publishJob(ctx context.Context, handle string) poller.JobObserver {
	if a.publisher == nil {
		return nil
	}
	return a.publisher.JobObserver(ctx, handle)
}

func (a *app) publishFiles(ctx context.Context, documentID string) poller.FileObserver {
	if a.publisher == nil {
		return nil
	}
	return a.publisher.FileObserver(ctx, documentID)
}

// waitJob polls one task, rendering progress as lines, as a dashboard, or
// not at all under --json.
func (a *app) waitJob(ctx context.Context, handle string) (poller.Snapshot, error) {
	opts := a.jobOptions()
	publish := a.publishJob(ctx, handle)
	if pollTUI {
		return tui.WatchJob(ctx, a.client, handle, publish, opts)
	}

	var progress poller.JobObserver
	if !jsonOutput {
		progress = jobLinePrinter(a.out, opts.MaxAttempts)
	}
	return poller.PollJob(ctx, a.client, handle, poller.JobObservers(publish, progress), opts)
}

// waitFiles polls the file statuses of one document.
func (a *app) waitFiles(ctx context.Context, documentID string) (poller.FileSnapshot, error) {
	opts := a.fileOptions()
	publish := a.publishFiles(ctx, documentID)
	if pollTUI {
		return tui.WatchFiles(ctx, a.client, documentID, publish, opts)
	}

	var progress poller.FileObserver
	if !jsonOutput {
		progress = fileLinePrinter(a.out, opts.MaxAttempts)
	}
	return poller.PollFileStatuses(ctx, a.client, documentID, poller.FileObservers(publish, progress), opts)
}

func jobLinePrinter(w io.Writer, maxAttempts int) poller.JobObserver {
	attempt := 0
	return func(s poller.Snapshot) {
		attempt++
		line := fmt.Sprintf("[%d/%d] %s %s", attempt, maxAttempts, s.TaskID, s.Status)
		if s.Error != "" {
			line += ": " + s.Error
		}
		fmt.Fprintln(w, line)
	}
}

func fileLinePrinter(w io.Writer, maxAttempts int) poller.FileObserver {
	round := 0
	return func(fs poller.FileSnapshot) {
		round++
		if msg, ok := fs.QueryError(); ok {
			fmt.Fprintf(w, "[%d/%d] status query failed: %s\n", round, maxAttempts, msg)
			return
		}
		processing, completed, failed := fs.Counts()
		fmt.Fprintf(w, "[%d/%d] %d file(s): %d processing, %d completed, %d failed\n",
			round, maxAttempts, len(fs), processing, completed, failed)
	}
}

// jobOutcome turns a final task snapshot into the command's exit status.
func jobOutcome(s poller.Snapshot) error {
	switch s.Status {
	case poller.StateSuccess:
		return nil
	case poller.StatePending, poller.StateStarted:
		return fmt.Errorf("%w: task %s still %s", ErrPollIncomplete, s.TaskID, s.Status)
	}
	if s.Error != "" {
		return fmt.Errorf("task %s ended %s: %s", s.TaskID, s.Status, s.Error)
	}
	return fmt.Errorf("task %s ended %s", s.TaskID, s.Status)
}

// filesOutcome turns a final file snapshot into the command's exit status.
func filesOutcome(fs poller.FileSnapshot) error {
	if msg, ok := fs.QueryError(); ok {
		return fmt.Errorf("file status unavailable: %s", msg)
	}
	if !fs.Done() {
		processing, _, _ := fs.Counts()
		return fmt.Errorf("%w: %d file(s) still processing", ErrPollIncomplete, processing)
	}
	var failed []string
	for _, r := range fs {
		if r.State() == poller.FileFailed {
			failed = append(failed, r.OriginalFilename)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d file(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func writeJob(w io.Writer, s poller.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Task:\t%s\n", s.TaskID)
	fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
	if len(s.Result) > 0 && string(s.Result) != "null" {
		fmt.Fprintf(tw, "Result:\t%s\n", compactJSON(s.Result))
	}
	if s.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", s.Error)
	}
	return tw.Flush()
}

// compactJSON prints raw on one line, or as is when it is not valid JSON.
func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func writeFiles(w io.Writer, fs poller.FileSnapshot) error {
	if msg, ok := fs.QueryError(); ok {
		_, err := fmt.Fprintf(w, "Status query failed: %s\n", msg)
		return err
	}
	if len(fs) == 0 {
		_, err := fmt.Fprintln(w, "No files.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tSIZE\tERROR")
	for _, r := range fs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.OriginalFilename, r.State(), tui.FormatSize(r.FileSize), truncate(r.ErrorMessage, 60))
	}
	return tw.Flush()
}
