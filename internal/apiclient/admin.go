package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AllDocuments lists every document regardless of owner or state.
func (c *Client) AllDocuments(ctx context.Context) (*DocumentList, error) {
	var list DocumentList
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/admin/documents"}, &list); err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	return &list, nil
}

// AllUsers lists every account.
func (c *Client) AllUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/admin/users"}, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ApproveUser approves a pending sign-up.
func (c *Client) ApproveUser(ctx context.Context, userID string) error {
	return c.userAction(ctx, userID, "approve")
}

// DeactivateUser disables an account.
func (c *Client) DeactivateUser(ctx context.Context, userID string) error {
	return c.userAction(ctx, userID, "deactivate")
}

// ActivateUser re-enables an account.
func (c *Client) ActivateUser(ctx context.Context, userID string) error {
	return c.userAction(ctx, userID, "activate")
}

func (c *Client) userAction(ctx context.Context, userID, action string) error {
	return c.simple(ctx, http.MethodPost, "/admin/users/"+seg(userID)+"/"+action,
		"/admin/users/{id}/"+action, nil, action+" user "+userID)
}

// AdminApproveDocument approves any pending document.
func (c *Client) AdminApproveDocument(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodPost, "/admin/documents/"+seg(id)+"/approve",
		"/admin/documents/{id}/approve", nil, "approve document "+id)
}

// AdminRejectDocument rejects any pending document.
func (c *Client) AdminRejectDocument(ctx context.Context, id, reason string) error {
	return c.simple(ctx, http.MethodPost, "/admin/documents/"+seg(id)+"/reject",
		"/admin/documents/{id}/reject", map[string]string{"reason": reason}, "reject document "+id)
}

// AdminDeleteDocument deletes a document permanently.
func (c *Client) AdminDeleteDocument(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodDelete, "/admin/documents/"+seg(id),
		"/admin/documents/{id}", nil, "delete document "+id)
}

// VectorizeOptions controls an indexing run.
type VectorizeOptions struct {
	// Full re-chunks every file instead of only new ones.
	Full  bool
	Force bool
}

// VectorizeDocument starts indexing a document and returns the task to poll.
func (c *Client) VectorizeDocument(ctx context.Context, id string, opts VectorizeOptions) (*UploadResult, error) {
	q := url.Values{}
	if opts.Full {
		q.Set("full_vectorize", "true")
	}
	if opts.Force {
		q.Set("force", "true")
	}
	var res UploadResult
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/admin/documents/" + seg(id) + "/vectorize",
		query:  q,
		route:  "/admin/documents/{id}/vectorize",
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("vectorize document %s: %w", id, err)
	}
	if res.ID == "" {
		res.ID = id
	}
	return &res, nil
}

// DeleteDocumentVector drops a document's index entries.
func (c *Client) DeleteDocumentVector(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodDelete, "/admin/documents/"+seg(id)+"/vector",
		"/admin/documents/{id}/vector", nil, "delete vector of "+id)
}

// CheckDocumentsValidity drops the index entries of expired documents.
func (c *Client) CheckDocumentsValidity(ctx context.Context) (Stats, error) {
	var out Stats
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/admin/documents/check-validity"}, &out); err != nil {
		return nil, fmt.Errorf("check document validity: %w", err)
	}
	return out, nil
}

// Stats returns the admin dashboard counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/admin/stats"}, &out); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return out, nil
}
