package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/listing"
)

var (
	// documents list flags
	docView     string
	docStatus   string
	docSort     string
	docOrder    string
	docPage     int
	docPerPage  int
	docUploader string
	docFilter   []string

	// upload and update flags
	docTitle        string
	docSummary      string
	docStartDate    string
	docEndDate      string
	docTags         []string
	docPublic       bool
	docFiles        []string
	docDeleteFiles  []string
	docWait         bool
	docAllowSecrets bool
	docAllowlists   []string

	// action flags
	docReason    string
	docOutputDir string
)

var statusAliases = map[string]string{
	"pending":  apiclient.StatusPendingApproval,
	"approved": apiclient.StatusApproved,
	"rejected": apiclient.StatusRejected,
	"all":      listing.StatusAll,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(
		docListCmd, docGetCmd, docUploadCmd, docUpdateCmd, docDeleteCmd,
		docApproveCmd, docRejectCmd, docTogglePublicCmd, docDeleteFileCmd,
		docFileVisibilityCmd, docAddFilesCmd, docVectorizeCmd, docUnvectorizeCmd,
		docSearchCmd, docDownloadCmd,
	)

	docListCmd.Flags().StringVar(&docView, "view", "", "Documents to list: my, public, or all visible (default)")
	docListCmd.Flags().StringVar(&docStatus, "status", "all", "Filter by status: pending, approved, rejected, all")
	docListCmd.Flags().StringVar(&docSort, "sort", listing.FieldCreatedAt, "Sort field: created_at, start_date, end_date, title")
	docListCmd.Flags().StringVar(&docOrder, "order", listing.OrderDesc, "Sort order: asc or desc")
	docListCmd.Flags().IntVar(&docPage, "page", 1, "Page number")
	docListCmd.Flags().IntVar(&docPerPage, "per-page", 10, "Documents per page")
	docListCmd.Flags().StringVar(&docUploader, "uploader", "", "Only documents of this uploader id")
	docListCmd.Flags().StringSliceVar(&docTags, "tag", nil, "Only documents with this tag (repeatable)")

	for _, c := range []*cobra.Command{docUploadCmd, docUpdateCmd} {
		c.Flags().StringVar(&docTitle, "title", "", "Document title")
		c.Flags().StringVar(&docSummary, "summary", "", "Document summary")
		c.Flags().StringVar(&docStartDate, "start-date", "", "Start date, YYYY-MM-DD")
		c.Flags().StringVar(&docEndDate, "end-date", "", "End date, YYYY-MM-DD")
		c.Flags().StringSliceVar(&docTags, "tag", nil, "Tag (repeatable)")
	}
	for _, c := range []*cobra.Command{docUploadCmd, docUpdateCmd, docAddFilesCmd} {
		c.Flags().StringSliceVar(&docFiles, "file", nil, "File to attach (repeatable)")
		c.Flags().BoolVar(&docAllowSecrets, "allow-secrets", false, "Upload even if the secret scan finds credentials")
		c.Flags().StringSliceVar(&docAllowlists, "allowlist", nil, "Extra secret-scan allowlist TOML file (repeatable)")
	}
	for _, c := range []*cobra.Command{docUploadCmd, docAddFilesCmd} {
		c.Flags().BoolVar(&docWait, "wait", false, "Wait for the processing task and file statuses")
		addPollFlags(c)
	}
	docUploadCmd.Flags().BoolVar(&docPublic, "public", false, "Make the document public")
	_ = docUploadCmd.MarkFlagRequired("title")
	_ = docUploadCmd.MarkFlagRequired("file")
	_ = docAddFilesCmd.MarkFlagRequired("file")
	docUpdateCmd.Flags().StringSliceVar(&docDeleteFiles, "delete-file", nil, "File name to remove (repeatable)")

	docRejectCmd.Flags().StringVar(&docReason, "reason", "", "Rejection reason")
	docFileVisibilityCmd.Flags().BoolVar(&docPublic, "public", false, "Make the file public (false makes it private)")
	docSearchCmd.Flags().StringSliceVar(&docFilter, "filter", nil, "Extra filter as key=value (repeatable)")
	docDownloadCmd.Flags().StringVarP(&docOutputDir, "output", "o", ".", "Directory to write files to")
}

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage documents",
	Long: `Manage documents and their files.

Examples:
  # Newest approved documents, second page
  docctl documents list --status approved --page 2

  # Upload and wait for processing
  docctl documents upload --title "Q3 report" --file report.pdf --file appendix.xlsx --wait

  # Download every file of a document
  docctl documents download 42 -o ./out`,
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Long: `List documents, filtered by status and sorted and paged locally.

Examples:
  docctl documents list --view my --sort title --order asc
  docctl documents list --status pending --per-page 20 --json`,
	Args: cobra.NoArgs,
	RunE: runDocList,
}

var docGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocGet,
}

var docUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a new document",
	Long: `Upload a document with one or more files.

Files and the summary are scanned for credentials first. The upload is
refused when the scan finds any, unless --allow-secrets is given.

With --wait the command polls the processing task and then the per-file
statuses, and fails if either does not finish cleanly.

Examples:
  docctl documents upload --title "Q3 report" --file report.pdf --tag finance --wait
  docctl documents upload --title Notes --file notes.md --public --wait --tui`,
	Args: cobra.NoArgs,
	RunE: runDocUpload,
}

var docUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a document",
	Long: `Edit a document. Unset flags keep the stored values. Edited documents
go back to pending approval.

Examples:
  docctl documents update 42 --title "Q3 report (final)"
  docctl documents update 42 --delete-file old.pdf --file new.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runDocUpdate,
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.DeleteMyDocument(cmd.Context(), args[0]), "Deleted document "+args[0])
	},
}

var docApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.ApproveDocument(cmd.Context(), args[0]), "Approved document "+args[0])
	},
}

var docRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.RejectDocument(cmd.Context(), args[0], docReason), "Rejected document "+args[0])
	},
}

var docTogglePublicCmd = &cobra.Command{
	Use:   "toggle-public <id>",
	Short: "Flip the public flag of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		doc, err := a.client.TogglePublic(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to toggle public: %w", err)
		}
		return a.emit(doc, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Document %s is now %s\n", args[0], visibility(doc.IsPublic))
			return err
		})
	},
}

var docDeleteFileCmd = &cobra.Command{
	Use:   "delete-file <id> <file-name>",
	Short: "Remove one file from a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.DeleteDocumentFile(cmd.Context(), args[0], args[1]), "Deleted "+args[1])
	},
}

var docFileVisibilityCmd = &cobra.Command{
	Use:   "file-visibility <id> <file-name>",
	Short: "Make one file public or private",
	Long: `Make one file of a document public or private.

Examples:
  docctl documents file-visibility 42 report.pdf --public
  docctl documents file-visibility 42 report.pdf --public=false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		err := a.client.SetFileVisibility(cmd.Context(), args[0], args[1], docPublic)
		return a.done(err, fmt.Sprintf("%s is now %s", args[1], visibility(docPublic)))
	},
}

var docAddFilesCmd = &cobra.Command{
	Use:   "add-files <id>",
	Short: "Attach more files to a document",
	Long: `Attach more files to a document. Files are scanned for credentials
first, as with upload.

Examples:
  docctl documents add-files 42 --file extra.pdf --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runDocAddFiles,
}

var docVectorizeCmd = &cobra.Command{
	Use:   "vectorize <id>",
	Short: "Ask an administrator to index a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.RequestVectorize(cmd.Context(), args[0]), "Indexing requested for "+args[0])
	},
}

var docUnvectorizeCmd = &cobra.Command{
	Use:   "unvectorize <id>",
	Short: "Ask an administrator to drop a document's index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		return a.done(a.client.RequestDeleteVector(cmd.Context(), args[0]), "Index removal requested for "+args[0])
	},
}

var docSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documents",
	Long: `Search documents with optional extra filters.

Examples:
  docctl documents search budget --filter status=approved`,
	Args: cobra.ExactArgs(1),
	RunE: runDocSearch,
}

var docDownloadCmd = &cobra.Command{
	Use:   "download <id> [file-name]",
	Short: "Download document files",
	Long: `Download one file of a document, or all of them when no file name is
given.

Examples:
  docctl documents download 42
  docctl documents download 42 report.pdf -o ~/Downloads`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDocDownload,
}

// done reports a body-less action.
func (a *app) done(err error, msg string) error {
	if err != nil {
		return err
	}
	return a.emit(map[string]string{"status": "ok", "message": msg}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, msg)
		return err
	})
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

// resolveStatus maps a friendly status name onto the stored value.
func resolveStatus(s string) string {
	if v, ok := statusAliases[strings.ToLower(s)]; ok {
		return v
	}
	return s
}

func runDocList(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	ctx := cmd.Context()
	params := apiclient.ListParams{Tags: docTags}

	var (
		list *apiclient.DocumentList
		err  error
	)
	switch {
	case docUploader != "":
		list, err = a.client.ListUploaderDocuments(ctx, docUploader, params)
	case docView == apiclient.ViewMy:
		list, err = a.client.ListMyDocuments(ctx, params)
	case docView == apiclient.ViewPublic:
		list, err = a.client.ListPublicDocuments(ctx, params)
	case docView == "" || docView == "all":
		list, err = a.client.ListDocuments(ctx, params)
	default:
		return fmt.Errorf("unknown view %q: use my, public or all", docView)
	}
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	page, err := pageDocuments(list.Items, resolveStatus(docStatus), docSort, docOrder, docPage, docPerPage)
	if err != nil {
		return err
	}
	return a.emit(page, func(w io.Writer) error { return writeDocumentPage(w, page) })
}

// pageDocuments filters, sorts and pages a document listing.
func pageDocuments(docs []apiclient.Document, status, field, order string, page, perPage int) (listing.Page[apiclient.Document], error) {
	sorted, err := listing.Sort(listing.Filter(docs, status), field, order)
	if err != nil {
		return listing.Page[apiclient.Document]{}, err
	}
	return listing.Paginate(sorted, page, perPage), nil
}

func writeDocumentPage(w io.Writer, page listing.Page[apiclient.Document]) error {
	if page.Total == 0 {
		_, err := fmt.Fprintln(w, "No documents.")
		return err
	}
	if err := writeDocumentTable(w, page.Items); err != nil {
		return err
	}

	var buttons []string
	for _, n := range listing.PageWindow(page.Page, page.TotalPages, listing.DefaultSpan) {
		if n == page.Page {
			buttons = append(buttons, fmt.Sprintf("[%d]", n))
		} else {
			buttons = append(buttons, fmt.Sprint(n))
		}
	}
	_, err := fmt.Fprintf(w, "\nPage %d of %d (%d documents)  %s\n",
		page.Page, page.TotalPages, page.Total, strings.Join(buttons, " "))
	return err
}

func writeDocumentTable(w io.Writer, docs []apiclient.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPERIOD\tFILES\tPUBLIC")
	for _, d := range docs {
		period := d.StartDate
		if d.EndDate != "" {
			period += " ~ " + d.EndDate
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.ID, truncate(d.Title, 40), d.Status, period, len(d.FileNames), visibility(d.IsPublic))
	}
	return tw.Flush()
}

func runDocGet(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	doc, err := a.client.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	return a.emit(doc, func(w io.Writer) error { return writeDocument(w, doc) })
}

func writeDocument(w io.Writer, d *apiclient.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", d.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", d.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", d.Status)
	fmt.Fprintf(tw, "Visibility:\t%s\n", visibility(d.IsPublic))
	fmt.Fprintf(tw, "Indexed:\t%t\n", d.Vectorized)
	if d.StartDate != "" || d.EndDate != "" {
		fmt.Fprintf(tw, "Period:\t%s ~ %s\n", d.StartDate, d.EndDate)
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(d.Tags, ", "))
	}
	if d.UploaderName != "" || d.UploaderEmail != "" {
		fmt.Fprintf(tw, "Uploader:\t%s <%s>\n", d.UploaderName, d.UploaderEmail)
	}
	if d.CreatedAt != nil {
		fmt.Fprintf(tw, "Created:\t%s\n", d.CreatedAt.Format("2006-01-02 15:04"))
	}
	for i, f := range d.FileNames {
		label := ""
		if i == 0 {
			label = "Files:"
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, f)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if d.Summary != "" {
		_, err := fmt.Fprintf(w, "\n%s\n", d.Summary)
		return err
	}
	return nil
}

func fileParts(paths []string) []apiclient.FilePart {
	parts := make([]apiclient.FilePart, len(paths))
	for i, p := range paths {
		parts[i] = apiclient.FileFromPath(p)
	}
	return parts
}

func runDocUpload(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	ctx := cmd.Context()
	if err := a.requireToken(); err != nil {
		return err
	}
	if err := a.checkSecrets(ctx, cmd.ErrOrStderr(), docFiles, docSummary); err != nil {
		return err
	}

	res, err := a.client.UploadDocument(ctx, apiclient.UploadRequest{
		Title:     docTitle,
		Summary:   docSummary,
		StartDate: docStartDate,
		EndDate:   docEndDate,
		Tags:      docTags,
		IsPublic:  docPublic,
		Files:     fileParts(docFiles),
	})
	if err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}
	return a.afterUpload(cmd, res)
}

func runDocAddFiles(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	ctx := cmd.Context()
	if err := a.checkSecrets(ctx, cmd.ErrOrStderr(), docFiles, ""); err != nil {
		return err
	}
	res, err := a.client.UploadAdditionalFiles(ctx, args[0], fileParts(docFiles))
	if err != nil {
		return fmt.Errorf("failed to add files: %w", err)
	}
	return a.afterUpload(cmd, res)
}

// uploadOutcome is the --json result of an upload.
type uploadOutcome struct {
	*apiclient.UploadResult
	Task  any `json:"task,omitempty"`
	Files any `json:"files,omitempty"`
}

// afterUpload prints the upload result and, with --wait, follows the task
// and then the file statuses.
func (a *app) afterUpload(cmd *cobra.Command, res *apiclient.UploadResult) error {
	ctx := cmd.Context()
	out := uploadOutcome{UploadResult: res}
	if !jsonOutput {
		fmt.Fprintf(a.out, "Uploaded document %s", res.ID)
		if res.TaskID != "" {
			fmt.Fprintf(a.out, " (task %s)", res.TaskID)
		}
		fmt.Fprintln(a.out)
	}
	if !docWait {
		return a.emit(out, func(io.Writer) error { return nil })
	}

	if res.TaskID != "" {
		final, err := a.waitJob(ctx, res.TaskID)
		out.Task = final
		if err != nil {
			return fmt.Errorf("failed to wait for task: %w", err)
		}
		if err := jobOutcome(final); err != nil {
			_ = a.emit(out, func(io.Writer) error { return nil })
			return err
		}
	}

	files, err := a.waitFiles(ctx, res.ID)
	out.Files = files
	if err != nil {
		return fmt.Errorf("failed to wait for files: %w", err)
	}
	if err := a.emit(out, func(w io.Writer) error { return writeFiles(w, files) }); err != nil {
		return err
	}
	return filesOutcome(files)
}

func runDocUpdate(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	ctx := cmd.Context()
	flags := cmd.Flags()

	var up apiclient.UpdateRequest
	if flags.Changed("title") {
		up.Title = &docTitle
	}
	if flags.Changed("summary") {
		up.Summary = &docSummary
	}
	if flags.Changed("start-date") {
		up.StartDate = &docStartDate
	}
	if flags.Changed("end-date") {
		up.EndDate = &docEndDate
	}
	if flags.Changed("tag") {
		up.Tags = append([]string{}, docTags...)
	}
	up.FilesToDelete = docDeleteFiles
	if len(docFiles) > 0 {
		summary := ""
		if up.Summary != nil {
			summary = *up.Summary
		}
		if err := a.checkSecrets(ctx, cmd.ErrOrStderr(), docFiles, summary); err != nil {
			return err
		}
		up.NewFiles = fileParts(docFiles)
	}

	doc, err := a.client.UpdateDocument(ctx, args[0], up)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return a.emit(doc, func(w io.Writer) error { return writeDocument(w, doc) })
}

func runDocSearch(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	filters := make(map[string]string, len(docFilter))
	for _, f := range docFilter {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid filter %q: want key=value", f)
		}
		filters[k] = v
	}
	list, err := a.client.SearchDocuments(cmd.Context(), args[0], filters)
	if err != nil {
		return fmt.Errorf("failed to search documents: %w", err)
	}
	return a.emit(list, func(w io.Writer) error {
		if len(list.Items) == 0 {
			_, err := fmt.Fprintln(w, "No documents.")
			return err
		}
		return writeDocumentTable(w, list.Items)
	})
}

func runDocDownload(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	ctx := cmd.Context()
	id := args[0]

	var names []string
	if len(args) == 2 {
		names = []string{args[1]}
	} else {
		info, err := a.client.DownloadInfo(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get download info: %w", err)
		}
		for _, f := range info.Files {
			names = append(names, f.Name)
		}
		if len(names) == 0 {
			return errors.New("document has no downloadable files")
		}
	}

	if err := os.MkdirAll(docOutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	type written struct {
		Name  string `json:"name"`
		Path  string `json:"path"`
		Bytes int64  `json:"bytes"`
	}
	var results []written
	for _, name := range names {
		path := filepath.Join(docOutputDir, filepath.Base(name))
		n, err := downloadTo(cmd, a, id, name, path)
		if err != nil {
			return err
		}
		results = append(results, written{Name: name, Path: path, Bytes: n})
		if !jsonOutput {
			fmt.Fprintf(a.out, "%s (%d bytes)\n", path, n)
		}
	}
	if jsonOutput {
		return outputJSON(a.out, results)
	}
	return nil
}

// downloadTo writes one file, removing the partial file on failure.
func downloadTo(cmd *cobra.Command, a *app, id, name, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := a.client.DownloadFile(cmd.Context(), id, name, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, fmt.Errorf("failed to download %s: %w", name, err)
	}
	return n, nil
}
