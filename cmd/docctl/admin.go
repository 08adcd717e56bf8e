package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
)

var (
	// admin command flags
	adminFull  bool
	adminForce bool
)

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminDocumentsCmd, adminUsersCmd,
		adminApproveUserCmd, adminActivateUserCmd, adminDeactivateUserCmd,
		adminApproveCmd, adminRejectCmd, adminDeleteCmd,
		adminVectorizeCmd, adminDeleteVectorCmd, adminCheckValidityCmd, adminStatsCmd)

	adminDocumentsCmd.Flags().StringVar(&docStatus, "status", "all", "Filter by status: pending, approved, rejected, all")
	adminDocumentsCmd.Flags().StringVar(&docSort, "sort", "created_at", "Sort field: created_at, start_date, end_date, title")
	adminDocumentsCmd.Flags().StringVar(&docOrder, "order", "desc", "Sort order: asc or desc")
	adminDocumentsCmd.Flags().IntVar(&docPage, "page", 1, "Page number")
	adminDocumentsCmd.Flags().IntVar(&docPerPage, "per-page", 10, "Documents per page")

	adminRejectCmd.Flags().StringVar(&docReason, "reason", "", "Rejection reason")
	adminVectorizeCmd.Flags().BoolVar(&adminFull, "full", false, "Re-chunk every file instead of only new ones")
	adminVectorizeCmd.Flags().BoolVar(&adminForce, "force", false, "Index even if the document is already indexed")
	adminVectorizeCmd.Flags().BoolVar(&docWait, "wait", false, "Wait for the indexing task")
	addPollFlags(adminVectorizeCmd)
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative operations",
	Long: `Administrative operations. The token must belong to an administrator.

Examples:
  docctl admin documents --status pending
  docctl admin approve-user 7
  docctl admin vectorize 42 --full --wait
  docctl admin stats`,
}

var adminDocumentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List every document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := appFrom(cmd)
		list, err := a.client.AllDocuments(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		page, err := pageDocuments(list.Items, resolveStatus(docStatus), docSort, docOrder, docPage, docPerPage)
		if err != nil {
			return err
		}
		return a.emit(page, func(w io.Writer) error { return writeDocumentPage(w, page) })
	},
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List every account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := appFrom(cmd)
		users, err := a.client.AllUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		return a.emit(users, func(w io.Writer) error { return writeUsers(w, users) })
	},
}

func userAction(use, short, msg string, action func(*apiclient.Client) func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			return a.done(action(a.client)(cmd.Context(), args[0]), msg+" "+args[0])
		},
	}
}

var (
	adminApproveUserCmd = userAction("approve-user", "Approve a pending sign-up", "Approved user",
		func(c *apiclient.Client) func(context.Context, string) error { return c.ApproveUser })
	adminActivateUserCmd = userAction("activate-user", "Re-enable an account", "Activated user",
		func(c *apiclient.Client) func(context.Context, string) error { return c.ActivateUser })
	adminDeactivateUserCmd = userAction("deactivate-user", "Disable an account", "Deactivated user",
		func(c *apiclient.Client) func(context.Context, string) error { return c.DeactivateUser })
)

var adminApproveCmd = &cobra.Command{
	Use:   "approve <document-id>",
	Short: "Approve any pending document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.AdminApproveDocument(cmd.Context(), args[0]), "Approved document "+args[0])
	},
}

var adminRejectCmd = &cobra.Command{
	Use:   "reject <document-id>",
	Short: "Reject any pending document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.AdminRejectDocument(cmd.Context(), args[0], docReason), "Rejected document "+args[0])
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete any document permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.AdminDeleteDocument(cmd.Context(), args[0]), "Deleted document "+args[0])
	},
}

var adminVectorizeCmd = &cobra.Command{
	Use:   "vectorize <document-id>",
	Short: "Index a document",
	Long: `Start indexing a document. With --wait the indexing task is polled
until it finishes.

Examples:
  docctl admin vectorize 42 --wait
  docctl admin vectorize 42 --full --force --wait --tui`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		res, err := a.client.VectorizeDocument(cmd.Context(), args[0],
			apiclient.VectorizeOptions{Full: adminFull, Force: adminForce})
		if err != nil {
			return fmt.Errorf("failed to start indexing: %w", err)
		}
		if !docWait || res.TaskID == "" {
			return a.emit(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Indexing started for %s (task %s)\n", res.ID, res.TaskID)
				return err
			})
		}
		final, err := a.waitJob(cmd.Context(), res.TaskID)
		if err != nil {
			return fmt.Errorf("failed to wait for indexing: %w", err)
		}
		if err := a.emit(final, func(w io.Writer) error { return writeJob(w, final) }); err != nil {
			return err
		}
		return jobOutcome(final)
	},
}

var adminDeleteVectorCmd = &cobra.Command{
	Use:   "delete-vector <document-id>",
	Short: "Drop a document's index entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.DeleteDocumentVector(cmd.Context(), args[0]), "Dropped index of "+args[0])
	},
}

var adminCheckValidityCmd = &cobra.Command{
	Use:   "check-validity",
	Short: "Drop the index entries of expired documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := appFrom(cmd)
		out, err := a.client.CheckDocumentsValidity(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to check validity: %w", err)
		}
		return a.emit(out, func(w io.Writer) error { return writeStats(w, out) })
	},
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := appFrom(cmd)
		stats, err := a.client.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		return a.emit(stats, func(w io.Writer) error { return writeStats(w, stats) })
	},
}

func writeUsers(w io.Writer, users []apiclient.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "No users.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tAPPROVED\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\n", u.ID, u.Email, u.Name, u.Role, u.IsApproved, u.IsActive)
	}
	return tw.Flush()
}

func writeStats(w io.Writer, stats apiclient.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range sortedKeys(stats) {
		fmt.Fprintf(tw, "%s\t%s\n", k, claimValue(stats[k]))
	}
	return tw.Flush()
}
