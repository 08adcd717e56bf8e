package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
)

var (
	// search command flags
	searchTags  []string
	searchPage  int
	searchLimit int
	searchDocs  []string
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchKeywordCmd, searchSimilarCmd, searchQACmd, searchPopularTagsCmd)

	searchKeywordCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "Only documents with this tag (repeatable)")
	searchKeywordCmd.Flags().IntVar(&searchPage, "page", 1, "Result page")
	for _, c := range []*cobra.Command{searchKeywordCmd, searchSimilarCmd, searchPopularTagsCmd} {
		c.Flags().IntVar(&searchLimit, "limit", 10, "Maximum results")
	}
	searchQACmd.Flags().StringSliceVar(&searchDocs, "doc", nil, "Restrict the answer to this document id (repeatable)")
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search indexed documents",
	Long: `Search indexed documents by keyword, similarity or question.

Examples:
  docctl search keyword "budget forecast" --tag finance
  docctl search similar 42 --limit 5
  docctl search qa "When does the Q3 contract end?" --doc 42`,
}

var searchKeywordCmd = &cobra.Command{
	Use:   "keyword <keyword>",
	Short: "Keyword search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		res, err := a.client.SearchByKeyword(cmd.Context(), args[0], searchTags, searchPage, searchLimit)
		if err != nil {
			return fmt.Errorf("failed to search: %w", err)
		}
		return a.emit(res, func(w io.Writer) error { return writeSearchResults(w, res) })
	},
}

var searchSimilarCmd = &cobra.Command{
	Use:   "similar <document-id>",
	Short: "Documents similar to a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		res, err := a.client.SearchSimilar(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return fmt.Errorf("failed to search similar documents: %w", err)
		}
		return a.emit(res, func(w io.Writer) error { return writeSearchResults(w, res) })
	},
}

var searchQACmd = &cobra.Command{
	Use:   "qa <question>",
	Short: "Ask a question over indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		ans, err := a.client.SearchByQuestion(cmd.Context(), args[0], searchDocs)
		if err != nil {
			return fmt.Errorf("failed to answer question: %w", err)
		}
		return a.emit(ans, func(w io.Writer) error { return writeAnswer(w, ans) })
	},
}

var searchPopularTagsCmd = &cobra.Command{
	Use:   "popular-tags",
	Short: "Most used tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := appFrom(cmd)
		tags, err := a.client.PopularTags(cmd.Context(), searchLimit)
		if err != nil {
			return fmt.Errorf("failed to get popular tags: %w", err)
		}
		return a.emit(tags, func(w io.Writer) error {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tDOCUMENTS")
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.Count)
			}
			return tw.Flush()
		})
	},
}

func writeSearchResults(w io.Writer, res *apiclient.SearchResponse) error {
	if len(res.Results) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSCORE\tMATCH")
	for _, r := range res.Results {
		match := ""
		if len(r.Highlights) > 0 {
			match = truncate(r.Highlights[0], 60)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", r.Document.ID, truncate(r.Document.Title, 40), r.Score, match)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d result(s) of %d\n", len(res.Results), res.Total)
	return err
}

func writeAnswer(w io.Writer, ans *apiclient.Answer) error {
	if _, err := fmt.Fprintln(w, strings.TrimSpace(ans.Answer)); err != nil {
		return err
	}
	if len(ans.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nSources:")
	for _, d := range ans.Sources {
		fmt.Fprintf(w, "  %s  %s\n", d.ID, d.Title)
	}
	return nil
}
