package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// ListParams filters and pages the document list. Zero values are omitted.
type ListParams struct {
	Skip       int
	Limit      int
	SortBy     string
	SortOrder  string
	Status     string
	ViewType   string
	UploaderID string
	Tags       []string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.SortOrder != "" {
		q.Set("sort_order", p.SortOrder)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.ViewType != "" {
		q.Set("view_type", p.ViewType)
	}
	if p.UploaderID != "" {
		q.Set("uploader_id", p.UploaderID)
	}
	for _, t := range p.Tags {
		q.Add("tag", t)
	}
	return q
}

// ListDocuments returns documents visible to the caller.
func (c *Client) ListDocuments(ctx context.Context, p ListParams) (*DocumentList, error) {
	var list DocumentList
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/documents", query: p.values()}, &list); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return &list, nil
}

// ListMyDocuments lists the caller's own uploads.
func (c *Client) ListMyDocuments(ctx context.Context, p ListParams) (*DocumentList, error) {
	p.ViewType = ViewMy
	return c.ListDocuments(ctx, p)
}

// ListPublicDocuments lists documents marked public.
func (c *Client) ListPublicDocuments(ctx context.Context, p ListParams) (*DocumentList, error) {
	p.ViewType = ViewPublic
	return c.ListDocuments(ctx, p)
}

// ListUploaderDocuments lists the documents of one uploader.
func (c *Client) ListUploaderDocuments(ctx context.Context, uploaderID string, p ListParams) (*DocumentList, error) {
	p.UploaderID = uploaderID
	return c.ListDocuments(ctx, p)
}

// GetDocument returns one document.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := c.doJSON(ctx, request{method: http.MethodGet, path: "/documents/" + seg(id), route: "/documents/{id}"}, &doc)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &doc, nil
}

// UploadRequest is a new document with its files.
type UploadRequest struct {
	Title     string
	Summary   string
	StartDate string // YYYY-MM-DD
	EndDate   string
	Tags      []string
	IsPublic  bool
	Files     []FilePart
}

// UploadDocument creates a document. The result carries the document id and
// the id of the processing task to poll.
func (c *Client) UploadDocument(ctx context.Context, up UploadRequest) (*UploadResult, error) {
	if up.Title == "" {
		return nil, fmt.Errorf("upload document: title is required")
	}
	if len(up.Files) == 0 {
		return nil, fmt.Errorf("upload document: at least one file is required")
	}
	tags, err := json.Marshal(nonNil(up.Tags))
	if err != nil {
		return nil, fmt.Errorf("upload document: encode tags: %w", err)
	}

	req, err := multipartRequest(http.MethodPost, "/documents/upload", "", []formField{
		{"title", up.Title},
		{"summary", up.Summary},
		{"startDate", up.StartDate},
		{"endDate", up.EndDate},
		{"tags", string(tags)},
		{"is_public", strconv.FormatBool(up.IsPublic)},
	}, up.Files)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	var res UploadResult
	if err := c.doJSON(ctx, req, &res); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	return &res, nil
}

// UpdateRequest edits a document. Nil fields keep the stored value.
type UpdateRequest struct {
	Title         *string
	Summary       *string
	StartDate     *string
	EndDate       *string
	Tags          []string
	FilesToDelete []string
	NewFiles      []FilePart
}

// UpdateDocument edits a document and sends it back for approval. Without
// new files the update is sent as JSON, otherwise as multipart.
func (c *Client) UpdateDocument(ctx context.Context, id string, up UpdateRequest) (*Document, error) {
	// The stored document fills the fields the caller left unset. A failed
	// lookup is not fatal; the server keeps what it has.
	existing, err := c.GetDocument(ctx, id)
	if err != nil {
		c.logger.Debug(ctx, "update without stored document", zap.Error(err))
		existing = &Document{}
	}

	title := pick(up.Title, existing.Title)
	summary := pick(up.Summary, existing.Summary)
	startDate := pick(up.StartDate, existing.StartDate)
	endDate := pick(up.EndDate, existing.EndDate)
	tags := up.Tags
	if tags == nil {
		tags = existing.Tags
	}
	remaining := slices.DeleteFunc(slices.Clone(existing.FileNames), func(name string) bool {
		return slices.Contains(up.FilesToDelete, name)
	})

	var req request
	if len(up.NewFiles) == 0 {
		body := map[string]any{
			"title":      title,
			"summary":    summary,
			"start_date": startDate,
			"end_date":   endDate,
			"tags":       nonNil(tags),
			"status":     StatusPendingApproval,
		}
		if len(up.FilesToDelete) > 0 {
			body["files_to_delete"] = up.FilesToDelete
			body["file_names"] = nonNil(remaining)
		}
		req, err = jsonRequest(http.MethodPut, "/documents/"+seg(id), body)
	} else {
		tagsJSON, _ := json.Marshal(nonNil(tags))
		fields := []formField{
			{"title", title},
			{"summary", summary},
			{"start_date", startDate},
			{"end_date", endDate},
			{"tags", string(tagsJSON)},
			{"status", StatusPendingApproval},
		}
		if len(up.FilesToDelete) > 0 {
			del, _ := json.Marshal(up.FilesToDelete)
			fields = append(fields, formField{"files_to_delete", string(del)})
		}
		req, err = multipartRequest(http.MethodPut, "/documents/"+seg(id), "", fields, up.NewFiles)
	}
	if err != nil {
		return nil, fmt.Errorf("update document %s: %w", id, err)
	}
	req.route = "/documents/{id}"

	var doc Document
	if err := c.doJSON(ctx, req, &doc); err != nil {
		return nil, fmt.Errorf("update document %s: %w", id, err)
	}
	return &doc, nil
}

// DeleteMyDocument deletes one of the caller's documents.
func (c *Client) DeleteMyDocument(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodDelete, "/documents/"+seg(id), "/documents/{id}", nil, "delete document "+id)
}

// ApproveDocument approves a pending document.
func (c *Client) ApproveDocument(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodPost, "/documents/"+seg(id)+"/approve", "/documents/{id}/approve", nil, "approve document "+id)
}

// RejectDocument rejects a pending document with an optional reason.
func (c *Client) RejectDocument(ctx context.Context, id, reason string) error {
	return c.simple(ctx, http.MethodPost, "/documents/"+seg(id)+"/reject", "/documents/{id}/reject",
		map[string]string{"reason": reason}, "reject document "+id)
}

// TogglePublic flips the public flag of a document.
func (c *Client) TogglePublic(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/documents/" + seg(id) + "/toggle-public",
		route:  "/documents/{id}/toggle-public",
	}, &doc)
	if err != nil {
		return nil, fmt.Errorf("toggle public %s: %w", id, err)
	}
	return &doc, nil
}

// DeleteDocumentFile removes one file from a document.
func (c *Client) DeleteDocumentFile(ctx context.Context, id, fileName string) error {
	return c.simple(ctx, http.MethodDelete, "/documents/"+seg(id)+"/files/"+seg(fileName),
		"/documents/{id}/files/{name}", nil, "delete file "+fileName)
}

// SetFileVisibility marks one file of a document public or private.
func (c *Client) SetFileVisibility(ctx context.Context, id, fileName string, public bool) error {
	return c.simple(ctx, http.MethodPost, "/documents/"+seg(id)+"/files/"+seg(fileName)+"/visibility",
		"/documents/{id}/files/{name}/visibility", map[string]bool{"is_public": public}, "set visibility of "+fileName)
}

// UploadAdditionalFiles attaches more files to an existing document.
func (c *Client) UploadAdditionalFiles(ctx context.Context, id string, files []FilePart) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("upload files: no files given")
	}
	req, err := multipartRequest(http.MethodPost, "/documents/"+seg(id)+"/files/upload", "/documents/{id}/files/upload",
		[]formField{{"document_id", id}}, files)
	if err != nil {
		return nil, fmt.Errorf("upload files to %s: %w", id, err)
	}
	var res UploadResult
	if err := c.doJSON(ctx, req, &res); err != nil {
		return nil, fmt.Errorf("upload files to %s: %w", id, err)
	}
	if res.ID == "" {
		res.ID = id
	}
	return &res, nil
}

// RequestVectorize asks an administrator to index the document.
func (c *Client) RequestVectorize(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodPost, "/documents/"+seg(id)+"/request-vectorize",
		"/documents/{id}/request-vectorize", nil, "request vectorize "+id)
}

// RequestDeleteVector asks an administrator to drop the document's index.
func (c *Client) RequestDeleteVector(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodPost, "/documents/"+seg(id)+"/request-delete-vector",
		"/documents/{id}/request-delete-vector", nil, "request vector deletion "+id)
}

// SearchDocuments runs a document search with extra filter parameters.
func (c *Client) SearchDocuments(ctx context.Context, query string, filters map[string]string) (*DocumentList, error) {
	q := url.Values{"query": {query}}
	for k, v := range filters {
		q.Set(k, v)
	}
	var list DocumentList
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/documents/search", query: q}, &list); err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return &list, nil
}

// DownloadInfo lists the downloadable files of a document.
func (c *Client) DownloadInfo(ctx context.Context, id string) (*DownloadInfo, error) {
	var info DownloadInfo
	err := c.doJSON(ctx, request{method: http.MethodGet, path: "/documents/" + seg(id) + "/download", route: "/documents/{id}/download"}, &info)
	if err != nil {
		return nil, fmt.Errorf("download info %s: %w", id, err)
	}
	return &info, nil
}

// DownloadFile streams one file of a document into w and returns the
// number of bytes written.
func (c *Client) DownloadFile(ctx context.Context, id, fileName string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/documents/" + seg(id) + "/download/" + seg(fileName),
		route:  "/documents/{id}/download/{name}",
	})
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", fileName, err)
	}
	return n, nil
}

// simple sends a request whose response body is ignored.
func (c *Client) simple(ctx context.Context, method, path, route string, payload any, op string) error {
	req, err := jsonRequest(method, path, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.route = route
	if err := c.doJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
