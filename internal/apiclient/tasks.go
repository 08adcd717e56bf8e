package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fyrsmithlabs/docctl/internal/poller"
)

// GetTaskStatus returns the current status of a background task.
// It satisfies poller.JobSource.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (poller.Snapshot, error) {
	var snap poller.Snapshot
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/tasks/" + seg(taskID),
		route:  "/tasks/{id}",
	}, &snap)
	if err != nil {
		return poller.Snapshot{}, fmt.Errorf("get task status: %w", err)
	}
	return snap, nil
}

// ListActiveTasks returns the tasks currently running on the workers.
// Administrators only.
func (c *Client) ListActiveTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/tasks/active/list"}, &tasks); err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	return tasks, nil
}

// CancelTask revokes a task. With terminate the worker running it is
// signalled as well. Administrators only.
func (c *Client) CancelTask(ctx context.Context, taskID string, terminate bool) error {
	err := c.doJSON(ctx, request{
		method: http.MethodDelete,
		path:   "/tasks/" + seg(taskID),
		query:  url.Values{"terminate": {strconv.FormatBool(terminate)}},
		route:  "/tasks/{id}",
	}, nil)
	if err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	return nil
}

// GetDocumentFilesStatus returns the ingestion status of every file of a
// document, in upload order. It satisfies poller.FileSource.
func (c *Client) GetDocumentFilesStatus(ctx context.Context, documentID string) (poller.FileSnapshot, error) {
	var files poller.FileSnapshot
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/documents/" + seg(documentID) + "/files/status",
		route:  "/documents/{id}/files/status",
	}, &files)
	if err != nil {
		return nil, fmt.Errorf("get file statuses: %w", err)
	}
	if files == nil {
		files = poller.FileSnapshot{}
	}
	return files, nil
}

var (
	_ poller.JobSource  = (*Client)(nil)
	_ poller.FileSource = (*Client)(nil)
)
