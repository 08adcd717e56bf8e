package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesStatusCmd)
	filesCmd.AddCommand(filesWatchCmd)

	addPollFlags(filesWatchCmd)
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect per-file processing of a document",
	Long: `Inspect the processing status of each file of a document.

Examples:
  docctl files status 42
  docctl files watch 42 --tui`,
}

var filesStatusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Query file statuses once",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesStatus,
}

var filesWatchCmd = &cobra.Command{
	Use:   "watch <document-id>",
	Short: "Poll file statuses until every file finishes",
	Long: `Poll a document's files until each is completed or failed, or the
attempt budget runs out. Transient query failures are retried.

The command fails if any file failed or the status stayed unavailable.

Examples:
  docctl files watch 42
  docctl files watch 42 --interval 1s --max-attempts 60`,
	Args: cobra.ExactArgs(1),
	RunE: runFilesWatch,
}

func runFilesStatus(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	fs, err := a.client.GetDocumentFilesStatus(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get file status: %w", err)
	}
	return a.emit(fs, func(w io.Writer) error { return writeFiles(w, fs) })
}

func runFilesWatch(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	final, err := a.waitFiles(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to watch files: %w", err)
	}
	if err := a.emit(final, func(w io.Writer) error { return writeFiles(w, final) }); err != nil {
		return err
	}
	return filesOutcome(final)
}
