package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/listing"
	"github.com/fyrsmithlabs/docctl/internal/poller"
)

func TestJobOutcome(t *testing.T) {
	tests := []struct {
		name       string
		snap       poller.Snapshot
		wantErr    string
		incomplete bool
	}{
		{name: "success", snap: poller.Snapshot{TaskID: "t", Status: poller.StateSuccess}},
		{name: "pending", snap: poller.Snapshot{TaskID: "t", Status: poller.StatePending}, wantErr: "task t still PENDING", incomplete: true},
		{name: "started", snap: poller.Snapshot{TaskID: "t", Status: poller.StateStarted}, wantErr: "task t still STARTED", incomplete: true},
		{name: "failure with error", snap: poller.Snapshot{TaskID: "t", Status: poller.StateFailure, Error: "boom"}, wantErr: "task t ended FAILURE: boom"},
		{name: "revoked", snap: poller.Snapshot{TaskID: "t", Status: poller.StateRevoked}, wantErr: "task t ended REVOKED"},
		{name: "transport error", snap: poller.Snapshot{TaskID: "t", Status: poller.StateError, Error: "connection refused"}, wantErr: "task t ended ERROR: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := jobOutcome(tt.snap)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.incomplete, errors.Is(err, ErrPollIncomplete))
		})
	}
}

func TestFilesOutcome(t *testing.T) {
	tests := []struct {
		name       string
		files      poller.FileSnapshot
		wantErr    string
		incomplete bool
	}{
		{name: "no files", files: poller.FileSnapshot{}},
		{
			name: "all completed",
			files: poller.FileSnapshot{
				{OriginalFilename: "a.pdf", ProcessingStatus: poller.FileCompleted},
				{OriginalFilename: "b.pdf", ProcessingStatus: poller.FileCompleted},
			},
		},
		{
			name: "still processing",
			files: poller.FileSnapshot{
				{OriginalFilename: "a.pdf", ProcessingStatus: poller.FileCompleted},
				{OriginalFilename: "b.pdf"},
			},
			wantErr:    "1 file(s) still processing",
			incomplete: true,
		},
		{
			name: "failed files are named",
			files: poller.FileSnapshot{
				{OriginalFilename: "a.pdf", ProcessingStatus: poller.FileFailed},
				{OriginalFilename: "b.pdf", ProcessingStatus: poller.FileCompleted},
				{OriginalFilename: "c.pdf", ProcessingStatus: poller.FileFailed},
			},
			wantErr: "2 file(s) failed: a.pdf, c.pdf",
		},
		{
			name:    "query error",
			files:   poller.FileSnapshot{{Error: "connection refused"}},
			wantErr: "file status unavailable: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := filesOutcome(tt.files)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.incomplete, errors.Is(err, ErrPollIncomplete))
		})
	}
}

func TestLinePrinters(t *testing.T) {
	var buf bytes.Buffer
	job := jobLinePrinter(&buf, 5)
	job(poller.Snapshot{TaskID: "t", Status: poller.StateStarted})
	job(poller.Snapshot{TaskID: "t", Status: poller.StateFailure, Error: "boom"})
	assert.Equal(t, "[1/5] t STARTED\n[2/5] t FAILURE: boom\n", buf.String())

	buf.Reset()
	files := fileLinePrinter(&buf, 3)
	files(poller.FileSnapshot{{OriginalFilename: "a"}, {OriginalFilename: "b", ProcessingStatus: poller.FileFailed}})
	files(poller.FileSnapshot{{Error: "timeout"}})
	assert.Equal(t, "[1/3] 2 file(s): 1 processing, 0 completed, 1 failed\n[2/3] status query failed: timeout\n", buf.String())
}

func testDocs() []apiclient.Document {
	at := func(day int) *time.Time {
		t := time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC)
		return &t
	}
	return []apiclient.Document{
		{ID: "1", Title: "Budget", Status: apiclient.StatusApproved, CreatedAt: at(1)},
		{ID: "2", Title: "audit", Status: apiclient.StatusPendingApproval, CreatedAt: at(3)},
		{ID: "3", Title: "Charter", Status: apiclient.StatusApproved, CreatedAt: at(2)},
		{ID: "4", Title: "Minutes", Status: apiclient.StatusRejected, CreatedAt: at(4)},
	}
}

func ids(docs []apiclient.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestPageDocuments(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		field     string
		order     string
		page      int
		perPage   int
		wantIDs   []string
		wantTotal int
		wantErr   bool
	}{
		{name: "newest first", status: "all", field: "created_at", order: "desc", page: 1, perPage: 10, wantIDs: []string{"4", "2", "3", "1"}, wantTotal: 4},
		{name: "approved by title", status: resolveStatus("approved"), field: "title", order: "asc", page: 1, perPage: 10, wantIDs: []string{"1", "3"}, wantTotal: 2},
		{name: "title ignores case", status: "all", field: "title", order: "asc", page: 1, perPage: 2, wantIDs: []string{"2", "1"}, wantTotal: 4},
		{name: "second page", status: "all", field: "created_at", order: "asc", page: 2, perPage: 3, wantIDs: []string{"4"}, wantTotal: 4},
		{name: "past the end", status: "all", field: "created_at", order: "asc", page: 9, perPage: 3, wantIDs: []string{}, wantTotal: 4},
		{name: "unknown field", status: "all", field: "size", order: "asc", page: 1, perPage: 10, wantErr: true},
		{name: "unknown order", status: "all", field: "title", order: "sideways", page: 1, perPage: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := pageDocuments(testDocs(), tt.status, tt.field, tt.order, tt.page, tt.perPage)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(page.Items))
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}
}

func TestResolveStatus(t *testing.T) {
	assert.Equal(t, apiclient.StatusPendingApproval, resolveStatus("Pending"))
	assert.Equal(t, apiclient.StatusRejected, resolveStatus("rejected"))
	assert.Equal(t, listing.StatusAll, resolveStatus("all"))
	assert.Equal(t, "custom", resolveStatus("custom"))
}

func TestWriteDocumentPage(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeDocumentPage(&buf, listing.Paginate([]apiclient.Document{}, 1, 10)))
		assert.Equal(t, "No documents.\n", buf.String())
	})

	t.Run("page window", func(t *testing.T) {
		docs := make([]apiclient.Document, 25)
		for i := range docs {
			docs[i] = apiclient.Document{ID: string(rune('a' + i)), Title: "doc"}
		}
		var buf bytes.Buffer
		require.NoError(t, writeDocumentPage(&buf, listing.Paginate(docs, 2, 10)))
		out := buf.String()
		assert.Contains(t, out, "ID")
		assert.Contains(t, out, "TITLE")
		assert.Contains(t, out, "Page 2 of 3 (25 documents)  1 [2] 3")
	})
}

func TestWriteJob(t *testing.T) {
	tests := []struct {
		name string
		snap poller.Snapshot
		want []string
		skip string
	}{
		{
			name: "result is compacted",
			snap: poller.Snapshot{TaskID: "t", Status: poller.StateSuccess, Result: json.RawMessage(`{"document_id": "42",  "pages": [1, 2]}`)},
			want: []string{"Task:    t", "Status:  SUCCESS", `Result:  {"document_id":"42","pages":[1,2]}`},
		},
		{
			name: "null result is omitted",
			snap: poller.Snapshot{TaskID: "t", Status: poller.StatePending, Result: json.RawMessage(`null`)},
			want: []string{"Status:  PENDING"},
			skip: "Result:",
		},
		{
			name: "error is shown",
			snap: poller.Snapshot{TaskID: "t", Status: poller.StateFailure, Error: "worker lost"},
			want: []string{"Error:   worker lost"},
			skip: "Result:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJob(&buf, tt.snap))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			if tt.skip != "" {
				assert.NotContains(t, buf.String(), tt.skip)
			}
		})
	}
}

func TestCompactJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, compactJSON(json.RawMessage("{ \"a\" :\n 1 }")))
	assert.Equal(t, "not json", compactJSON(json.RawMessage("not json")))
}

func TestWriteFiles(t *testing.T) {
	size := int64(3 * 1024 * 1024)
	var buf bytes.Buffer
	require.NoError(t, writeFiles(&buf, poller.FileSnapshot{
		{OriginalFilename: "scan.pdf", ProcessingStatus: poller.FileCompleted, FileSize: &size},
		{OriginalFilename: "notes.hwp", ProcessingStatus: poller.FileFailed, ErrorMessage: "unsupported format"},
	}))
	out := buf.String()
	assert.Contains(t, out, "scan.pdf")
	assert.Contains(t, out, "3.0 MB")
	assert.Contains(t, out, "unsupported format")

	buf.Reset()
	require.NoError(t, writeFiles(&buf, poller.FileSnapshot{}))
	assert.Equal(t, "No files.\n", buf.String())
}
