package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/poller"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend replays task states and file rounds.
type fakeBackend struct {
	mu        sync.Mutex
	states    []poller.JobState
	taskCalls int
	rounds    []poller.FileSnapshot
	fileCalls int
	fileErr   error
	search    *apiclient.SearchResponse
	keywords  []string
}

func (f *fakeBackend) GetTaskStatus(_ context.Context, handle string) (poller.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.taskCalls, len(f.states)-1)
	f.taskCalls++
	snap := poller.Snapshot{TaskID: handle, Status: f.states[i]}
	if snap.Status == poller.StateSuccess {
		snap.Result = json.RawMessage(`{"document_id":"42"}`)
	}
	return snap, nil
}

func (f *fakeBackend) GetDocumentFilesStatus(context.Context, string) (poller.FileSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	i := min(f.fileCalls, len(f.rounds)-1)
	f.fileCalls++
	return f.rounds[i], nil
}

func (f *fakeBackend) SearchByKeyword(_ context.Context, keyword string, _ []string, _, _ int) (*apiclient.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords = append(f.keywords, keyword)
	return f.search, nil
}

func fastPoller() config.PollerConfig {
	return config.PollerConfig{
		JobInterval:      config.Duration(time.Millisecond),
		JobMaxAttempts:   10,
		FileInterval:     config.Duration(time.Millisecond),
		FileMaxAttempts:  10,
		TransportRetries: 1,
	}
}

func connect(t *testing.T, backend Backend) *mcp.ClientSession {
	t.Helper()
	s, err := NewServer(Config{Poller: fastPoller()}, backend)
	require.NoError(t, err)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err = s.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

func TestNewServer_RequiresBackend(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	cs := connect(t, &fakeBackend{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"task_status", "task_wait", "document_files_wait", "search_documents"}, names)
}

func TestTaskStatus(t *testing.T) {
	cs := connect(t, &fakeBackend{states: []poller.JobState{poller.StateStarted}})

	var out taskStatusOutput
	res := call(t, cs, "task_status", map[string]any{"task_id": "abc"}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "abc", out.Snapshot.TaskID)
	assert.Equal(t, "STARTED", out.Snapshot.Status)
	assert.False(t, out.Terminal)

	res = call(t, cs, "task_status", map[string]any{"task_id": ""}, nil)
	assert.True(t, res.IsError)
}

func TestTaskWait(t *testing.T) {
	backend := &fakeBackend{states: []poller.JobState{poller.StatePending, poller.StateStarted, poller.StateSuccess}}
	cs := connect(t, backend)

	var out taskWaitOutput
	res := call(t, cs, "task_wait", map[string]any{"task_id": "abc"}, &out)
	require.False(t, res.IsError)

	assert.True(t, out.Terminal)
	assert.Equal(t, "SUCCESS", out.Final.Status)
	assert.Equal(t, map[string]any{"document_id": "42"}, out.Final.Result)
	require.Len(t, out.Sequence, 3)
	assert.Equal(t, []string{"PENDING", "STARTED", "SUCCESS"},
		[]string{out.Sequence[0].Status, out.Sequence[1].Status, out.Sequence[2].Status})
}

func TestTaskWait_AttemptOverride(t *testing.T) {
	backend := &fakeBackend{states: []poller.JobState{poller.StatePending}}
	cs := connect(t, backend)

	var out taskWaitOutput
	res := call(t, cs, "task_wait", map[string]any{"task_id": "slow", "max_attempts": 2, "interval_seconds": 0.001}, &out)
	require.False(t, res.IsError)
	assert.False(t, out.Terminal)
	assert.Len(t, out.Sequence, 2)
	assert.Equal(t, 2, backend.taskCalls)

	res = call(t, cs, "task_wait", map[string]any{"task_id": "slow", "max_attempts": -1}, nil)
	assert.True(t, res.IsError)
}

func TestDocumentFilesWait(t *testing.T) {
	backend := &fakeBackend{rounds: []poller.FileSnapshot{
		{{OriginalFilename: "a.pdf", ProcessingStatus: poller.FileProcessing}},
		{{OriginalFilename: "a.pdf", ProcessingStatus: poller.FileCompleted}, {OriginalFilename: "b.pdf", ProcessingStatus: poller.FileFailed}},
	}}
	cs := connect(t, backend)

	var out filesWaitOutput
	res := call(t, cs, "document_files_wait", map[string]any{"document_id": "42"}, &out)
	require.False(t, res.IsError)
	assert.True(t, out.Done)
	assert.Equal(t, 2, out.Snapshots)
	assert.Equal(t, 1, out.Completed)
	assert.Equal(t, 1, out.Failed)
	assert.Len(t, out.Files, 2)
}

func TestDocumentFilesWait_QueryError(t *testing.T) {
	backend := &fakeBackend{fileErr: &apiclient.APIError{StatusCode: 404, Detail: "Document not found"}}
	cs := connect(t, backend)

	var out filesWaitOutput
	res := call(t, cs, "document_files_wait", map[string]any{"document_id": "gone"}, &out)
	require.False(t, res.IsError, "a persistent query failure is reported as data")
	assert.Equal(t, "Document not found", out.Error)
	assert.False(t, out.Done)
}

func TestSearchDocuments(t *testing.T) {
	backend := &fakeBackend{search: &apiclient.SearchResponse{
		Results: []apiclient.SearchResult{
			{Document: apiclient.Document{ID: "1", Title: "Budget 2024", Tags: []string{"finance"}}, Score: 0.9},
		},
		Total: 1,
		Page:  1,
	}}
	cs := connect(t, backend)

	var out searchOutput
	res := call(t, cs, "search_documents", map[string]any{"keyword": "budget"}, &out)
	require.False(t, res.IsError)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Budget 2024", out.Results[0].Title)
	assert.Equal(t, []string{"budget"}, backend.keywords)

	res = call(t, cs, "search_documents", map[string]any{"keyword": ""}, nil)
	assert.True(t, res.IsError)
}
