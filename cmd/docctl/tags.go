package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
)

var (
	// tags command flags
	tagScope       string
	tagSearch      string
	tagSkip        int
	tagLimit       int
	tagName        string
	tagDescription string
	tagColor       string
	tagSystem      bool
	tagAttach      bool
	tagUser        string
)

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsListCmd, tagsCreateCmd, tagsUpdateCmd, tagsDeleteCmd,
		tagsAddCmd, tagsRemoveCmd, tagsQuotaCmd, tagsSetQuotaCmd)

	tagsListCmd.Flags().StringVar(&tagScope, "scope", "available", "Tags to list: available, mine, personal, system, user, all")
	tagsListCmd.Flags().StringVar(&tagSearch, "search", "", "Only tags whose name contains this text")
	tagsListCmd.Flags().IntVar(&tagSkip, "skip", 0, "Tags to skip")
	tagsListCmd.Flags().IntVar(&tagLimit, "limit", 0, "Maximum tags to return")

	for _, c := range []*cobra.Command{tagsCreateCmd, tagsUpdateCmd} {
		c.Flags().StringVar(&tagName, "name", "", "Tag name")
		c.Flags().StringVar(&tagDescription, "description", "", "Tag description")
		c.Flags().StringVar(&tagColor, "color", "", "Tag color, e.g. #3b82f6")
	}
	for _, c := range []*cobra.Command{tagsCreateCmd, tagsUpdateCmd, tagsDeleteCmd} {
		c.Flags().BoolVar(&tagSystem, "system", false, "Operate on a system tag (admin)")
	}
	_ = tagsCreateCmd.MarkFlagRequired("name")
	tagsCreateCmd.Flags().BoolVar(&tagAttach, "add", false, "Also add the new tag to your tag set")
	tagsQuotaCmd.Flags().StringVar(&tagUser, "user", "", "Show another user's quota (admin)")
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags",
	Long: `Manage personal and system tags.

Examples:
  # Tags you can attach to documents
  docctl tags list

  # Create a personal tag and add it to your set
  docctl tags create --name budget --color "#16a34a" --add

  # Create a system tag (admin)
  docctl tags create --name finance --system`,
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE:  runTagsList,
}

var tagsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a tag",
	Args:  cobra.NoArgs,
	RunE:  runTagsCreate,
}

var tagsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsUpdate,
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		del := a.client.DeletePersonalTag
		if tagSystem {
			del = a.client.DeleteSystemTag
		}
		return a.done(del(cmd.Context(), args[0]), "Deleted tag "+args[0])
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add an existing tag to your tag set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.AddExistingTag(cmd.Context(), args[0]), "Added tag "+args[0])
	},
}

var tagsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a tag from your tag set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.RemoveTag(cmd.Context(), args[0]), "Removed tag "+args[0])
	},
}

var tagsQuotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show personal tag quota",
	Args:  cobra.NoArgs,
	RunE:  runTagsQuota,
}

var tagsSetQuotaCmd = &cobra.Command{
	Use:   "set-quota <user-id> <max-tags>",
	Short: "Change a user's personal tag quota (admin)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagsSetQuota,
}

func runTagsList(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	p := apiclient.TagListParams{Search: tagSearch, Skip: tagSkip, Limit: tagLimit}

	var list func(ctx context.Context, p apiclient.TagListParams) ([]apiclient.Tag, error)
	switch tagScope {
	case "available":
		list = a.client.ListAvailableTags
	case "mine":
		list = a.client.ListMyTags
	case "personal":
		list = a.client.ListPersonalTags
	case "system":
		list = a.client.ListSystemTags
	case "user":
		list = a.client.ListUserTags
	case "all":
		list = a.client.ListAllTags
	default:
		return fmt.Errorf("unknown tag scope %q", tagScope)
	}

	tags, err := list(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}
	return a.emit(tags, func(w io.Writer) error { return writeTags(w, tags) })
}

func writeTags(w io.Writer, tags []apiclient.Tag) error {
	if len(tags) == 0 {
		_, err := fmt.Fprintln(w, "No tags.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tCOLOR\tDESCRIPTION")
	for _, t := range tags {
		kind := "personal"
		if t.IsSystem {
			kind = "system"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, kind, t.Color, truncate(t.Description, 50))
	}
	return tw.Flush()
}

func tagInput() apiclient.TagInput {
	return apiclient.TagInput{Name: tagName, Description: tagDescription, Color: tagColor}
}

func runTagsCreate(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	ctx := cmd.Context()
	var (
		tag *apiclient.Tag
		err error
	)
	switch {
	case tagSystem:
		tag, err = a.client.CreateSystemTag(ctx, tagInput())
	case tagAttach:
		tag, err = a.client.CreateAndAddTag(ctx, tagInput())
	default:
		tag, err = a.client.CreatePersonalTag(ctx, tagInput())
	}
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return a.emit(tag, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Created tag %s (%s)\n", tag.Name, tag.ID)
		return err
	})
}

func runTagsUpdate(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	update := a.client.UpdatePersonalTag
	if tagSystem {
		update = a.client.UpdateSystemTag
	}
	tag, err := update(cmd.Context(), args[0], tagInput())
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return a.emit(tag, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Updated tag %s (%s)\n", tag.Name, tag.ID)
		return err
	})
}

func runTagsQuota(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	var (
		q   *apiclient.TagQuota
		err error
	)
	if tagUser != "" {
		q, err = a.client.UserTagQuota(cmd.Context(), tagUser)
	} else {
		q, err = a.client.MyTagQuota(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to get tag quota: %w", err)
	}
	return a.emit(q, func(w io.Writer) error { return writeQuota(w, q) })
}

func runTagsSetQuota(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	maxTags, err := strconv.Atoi(args[1])
	if err != nil || maxTags < 0 {
		return fmt.Errorf("invalid max tags %q", args[1])
	}
	q, err := a.client.UpdateUserTagQuota(cmd.Context(), args[0], maxTags)
	if err != nil {
		return fmt.Errorf("failed to update tag quota: %w", err)
	}
	return a.emit(q, func(w io.Writer) error { return writeQuota(w, q) })
}

func writeQuota(w io.Writer, q *apiclient.TagQuota) error {
	_, err := fmt.Fprintf(w, "%d of %d personal tags used\n", q.UsedTags, q.MaxTags)
	return err
}
