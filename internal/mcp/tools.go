package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"github.com/fyrsmithlabs/docctl/internal/poller"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var errInvalidArgument = errors.New("invalid argument")

// taskSnapshot mirrors poller.Snapshot with the result decoded, so the
// output schema accepts any JSON result.
type taskSnapshot struct {
	TaskID string `json:"task_id" jsonschema:"Task handle"`
	Status string `json:"status" jsonschema:"PENDING, STARTED, SUCCESS, FAILURE, REVOKED or ERROR"`
	Result any    `json:"result,omitempty" jsonschema:"Task result, present once the task succeeded"`
	Error  string `json:"error,omitempty" jsonschema:"Failure message"`
}

func fromSnapshot(s poller.Snapshot) taskSnapshot {
	out := taskSnapshot{TaskID: s.TaskID, Status: string(s.Status), Error: s.Error}
	if len(s.Result) > 0 {
		var v any
		if err := json.Unmarshal(s.Result, &v); err == nil {
			out.Result = v
		} else {
			out.Result = string(s.Result)
		}
	}
	return out
}

type taskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"Task handle returned by an upload or vectorize request"`
}

type taskStatusOutput struct {
	Snapshot taskSnapshot `json:"snapshot" jsonschema:"Current task status"`
	Terminal bool         `json:"terminal" jsonschema:"True when the task will not change any more"`
}

// overrideWait applies per-call poll overrides. Zero keeps the configured value.
func overrideWait(opts poller.Options, intervalSeconds float64, maxAttempts int) (poller.Options, error) {
	if intervalSeconds < 0 || maxAttempts < 0 {
		return opts, fmt.Errorf("%w: interval_seconds and max_attempts must not be negative", errInvalidArgument)
	}
	if intervalSeconds > 0 {
		opts.Interval = time.Duration(intervalSeconds * float64(time.Second))
	}
	if maxAttempts > 0 {
		opts.MaxAttempts = maxAttempts
	}
	return opts, nil
}

type taskWaitInput struct {
	TaskID          string  `json:"task_id" jsonschema:"Task handle to wait on"`
	IntervalSeconds float64 `json:"interval_seconds,omitempty" jsonschema:"Seconds between queries (default from config)"`
	MaxAttempts     int     `json:"max_attempts,omitempty" jsonschema:"Maximum number of queries (default from config)"`
}

type taskWaitOutput struct {
	Final    taskSnapshot   `json:"final" jsonschema:"Last observed status"`
	Sequence []taskSnapshot `json:"sequence" jsonschema:"Every observed status in order"`
	Terminal bool           `json:"terminal" jsonschema:"False when the attempt budget ran out first"`
	Elapsed  string         `json:"elapsed" jsonschema:"Wall time spent waiting"`
}

type filesWaitInput struct {
	DocumentID      string  `json:"document_id" jsonschema:"Document whose files to wait on"`
	IntervalSeconds float64 `json:"interval_seconds,omitempty" jsonschema:"Seconds between queries (default from config)"`
	MaxAttempts     int     `json:"max_attempts,omitempty" jsonschema:"Maximum number of queries (default from config)"`
}

type filesWaitOutput struct {
	Files      []poller.FileRecord `json:"files" jsonschema:"Final status of every file"`
	Done       bool                `json:"done" jsonschema:"True when every file completed or failed"`
	Processing int                 `json:"processing"`
	Completed  int                 `json:"completed"`
	Failed     int                 `json:"failed"`
	Error      string              `json:"error,omitempty" jsonschema:"Set when the status query kept failing"`
	Snapshots  int                 `json:"snapshots" jsonschema:"Number of snapshots observed"`
}

type searchInput struct {
	Keyword string   `json:"keyword" jsonschema:"Keyword to search for"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Only documents carrying these tags"`
	Page    int      `json:"page,omitempty" jsonschema:"1-based page (default 1)"`
	Limit   int      `json:"limit,omitempty" jsonschema:"Results per page (default 10)"`
}

type searchHit struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	Status     string   `json:"status,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Score      float64  `json:"score,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

type searchOutput struct {
	Results []searchHit `json:"results"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_status",
		Description: "Get the current status of a background task (document processing, vectorization).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args taskStatusInput) (res *mcp.CallToolResult, out taskStatusOutput, err error) {
		done := s.metrics.track(ctx, "task_status")
		defer func() { done(err) }()
		if args.TaskID == "" {
			return nil, out, fmt.Errorf("%w: task_id is required", errInvalidArgument)
		}
		snap, err := s.backend.GetTaskStatus(ctx, args.TaskID)
		if err != nil {
			return nil, out, err
		}
		if snap.TaskID == "" {
			snap.TaskID = args.TaskID
		}
		out = taskStatusOutput{Snapshot: fromSnapshot(snap), Terminal: snap.Status.IsTerminal()}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Task %s is %s", snap.TaskID, snap.Status)}},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_wait",
		Description: "Poll a background task until it finishes or the attempt budget runs out. Returns the final status and every status observed.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args taskWaitInput) (res *mcp.CallToolResult, out taskWaitOutput, err error) {
		done := s.metrics.track(ctx, "task_wait")
		defer func() { done(err) }()
		if args.TaskID == "" {
			return nil, out, fmt.Errorf("%w: task_id is required", errInvalidArgument)
		}
		opts, err := overrideWait(s.options(poller.JobOptions), args.IntervalSeconds, args.MaxAttempts)
		if err != nil {
			return nil, out, err
		}

		ctx = logging.WithJobHandle(ctx, args.TaskID)
		out.Sequence = []taskSnapshot{}
		observe := func(snap poller.Snapshot) { out.Sequence = append(out.Sequence, fromSnapshot(snap)) }
		if s.publisher != nil {
			observe = poller.JobObservers(observe, s.publisher.JobObserver(ctx, args.TaskID))
		}

		start := time.Now()
		final, err := poller.PollJob(ctx, s.backend, args.TaskID, observe, opts)
		if err != nil {
			return nil, out, err
		}
		out.Final = fromSnapshot(final)
		out.Terminal = final.Status.IsTerminal()
		out.Elapsed = time.Since(start).Round(time.Millisecond).String()

		text := fmt.Sprintf("Task %s finished as %s after %d queries", args.TaskID, final.Status, len(out.Sequence))
		if !out.Terminal {
			text = fmt.Sprintf("Task %s still %s after %d queries", args.TaskID, final.Status, len(out.Sequence))
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "document_files_wait",
		Description: "Poll the ingestion status of every file of a document until all completed or failed.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args filesWaitInput) (res *mcp.CallToolResult, out filesWaitOutput, err error) {
		done := s.metrics.track(ctx, "document_files_wait")
		defer func() { done(err) }()
		if args.DocumentID == "" {
			return nil, out, fmt.Errorf("%w: document_id is required", errInvalidArgument)
		}
		opts, err := overrideWait(s.options(poller.FileOptions), args.IntervalSeconds, args.MaxAttempts)
		if err != nil {
			return nil, out, err
		}

		ctx = logging.WithDocumentID(ctx, args.DocumentID)
		observe := func(poller.FileSnapshot) { out.Snapshots++ }
		if s.publisher != nil {
			observe = poller.FileObservers(observe, s.publisher.FileObserver(ctx, args.DocumentID))
		}

		files, err := poller.PollFileStatuses(ctx, s.backend, args.DocumentID, observe, opts)
		if err != nil {
			return nil, out, err
		}
		out.Files = []poller.FileRecord(files)
		if out.Files == nil {
			out.Files = []poller.FileRecord{}
		}
		if msg, failed := files.QueryError(); failed {
			out.Error = msg
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "File status unavailable: " + msg}},
			}, out, nil
		}
		out.Done = files.Done()
		out.Processing, out.Completed, out.Failed = files.Counts()
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(
				"%d completed, %d failed, %d processing", out.Completed, out.Failed, out.Processing)}},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_documents",
		Description: "Keyword search over the documents visible to the logged-in user.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (res *mcp.CallToolResult, out searchOutput, err error) {
		done := s.metrics.track(ctx, "search_documents")
		defer func() { done(err) }()
		if args.Keyword == "" {
			return nil, out, fmt.Errorf("%w: keyword is required", errInvalidArgument)
		}
		resp, err := s.backend.SearchByKeyword(ctx, args.Keyword, args.Tags, args.Page, args.Limit)
		if err != nil {
			return nil, out, err
		}
		out = searchOutput{Results: make([]searchHit, 0, len(resp.Results)), Total: resp.Total, Page: resp.Page}
		for _, r := range resp.Results {
			out.Results = append(out.Results, hit(r))
		}
		s.logger.Debug(ctx, "search_documents", zap.String("keyword", args.Keyword), zap.Int("results", len(out.Results)))
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d documents", out.Total)}},
		}, out, nil
	})
}

func hit(r apiclient.SearchResult) searchHit {
	return searchHit{
		ID:         r.Document.ID,
		Title:      r.Document.Title,
		Summary:    r.Document.Summary,
		Status:     r.Document.Status,
		Tags:       r.Document.Tags,
		Score:      r.Score,
		Highlights: r.Highlights,
	}
}

func (s *Server) options(from func(config.PollerConfig) poller.Options) poller.Options {
	opts := from(s.poller)
	opts.Logger = s.logger
	return opts
}
