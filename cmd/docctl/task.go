package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/poller"
)

var taskTerminate bool

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskWatchCmd)
	taskCmd.AddCommand(taskActiveCmd)
	taskCmd.AddCommand(taskCancelCmd)

	addPollFlags(taskWatchCmd)
	taskCancelCmd.Flags().BoolVar(&taskTerminate, "terminate", false, "Stop the task if it is already running")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and follow background tasks",
	Long: `Inspect and follow the background tasks that process uploads and
indexing.

Examples:
  # One status query
  docctl task status abc123

  # Poll until the task finishes
  docctl task watch abc123

  # List running tasks
  docctl task active`,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Query a task once",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStatus,
}

var taskWatchCmd = &cobra.Command{
	Use:   "watch <task-id> [task-id...]",
	Short: "Poll tasks until they finish",
	Long: `Poll one or more tasks until each reaches SUCCESS, FAILURE or REVOKED,
or the attempt budget runs out.

The command fails unless every task succeeded.

Examples:
  # Follow one task
  docctl task watch abc123

  # Follow one task in a dashboard
  docctl task watch abc123 --tui

  # Follow several tasks concurrently, checking every 5s
  docctl task watch abc123 def456 --interval 5s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTaskWatch,
}

var taskActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List running tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskActive,
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task",
	Long: `Revoke a task. Pending tasks never start; running tasks stop only with
--terminate.

Examples:
  docctl task cancel abc123 --terminate`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskCancel,
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	snap, err := a.client.GetTaskStatus(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get task status: %w", err)
	}
	return a.emit(snap, func(w io.Writer) error { return writeJob(w, snap) })
}

func runTaskWatch(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	if len(args) == 1 {
		final, err := a.waitJob(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to watch task: %w", err)
		}
		if err := a.emit(final, func(w io.Writer) error { return writeJob(w, final) }); err != nil {
			return err
		}
		return jobOutcome(final)
	}

	if pollTUI {
		return errors.New("--tui follows a single task")
	}

	ctx := cmd.Context()
	var progress func(string, poller.Snapshot)
	if !jsonOutput {
		progress = func(handle string, s poller.Snapshot) {
			fmt.Fprintf(a.out, "%s %s\n", handle, s.Status)
		}
	}
	onUpdate := func(handle string, s poller.Snapshot) {
		if obs := a.publishJob(ctx, handle); obs != nil {
			obs(s)
		}
		if progress != nil {
			progress(handle, s)
		}
	}

	results, err := poller.WatchJobs(ctx, a.client, args, onUpdate, a.jobOptions())
	if emitErr := a.emit(results, func(w io.Writer) error { return writeJobResults(w, results) }); emitErr != nil {
		return emitErr
	}
	if err != nil {
		return fmt.Errorf("failed to watch tasks: %w", err)
	}
	var errs []error
	for _, h := range sortedKeys(results) {
		if oerr := jobOutcome(results[h]); oerr != nil {
			errs = append(errs, oerr)
		}
	}
	return errors.Join(errs...)
}

func writeJobResults(w io.Writer, results map[string]poller.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tERROR")
	for _, h := range sortedKeys(results) {
		s := results[h]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h, s.Status, truncate(s.Error, 60))
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runTaskActive(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	tasks, err := a.client.ListActiveTasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list active tasks: %w", err)
	}
	return a.emit(tasks, func(w io.Writer) error {
		if len(tasks) == 0 {
			_, err := fmt.Fprintln(w, "No active tasks.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK\tNAME\tSTATUS\tWORKER")
		for _, t := range tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.TaskID, t.Name, t.Status, t.Worker)
		}
		return tw.Flush()
	})
}

func runTaskCancel(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	if err := a.client.CancelTask(cmd.Context(), args[0], taskTerminate); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	return a.emit(map[string]string{"task_id": args[0], "status": "cancel requested"}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Cancel requested for task %s\n", args[0])
		return err
	})
}
