// Package notify publishes poll snapshots to NATS so other processes can
// follow a running upload.
//
// Subjects:
//
//	{prefix}.tasks.{handle}.status        every task snapshot
//	{prefix}.tasks.{handle}.completed     terminal task snapshot
//	{prefix}.documents.{id}.files         every file-status snapshot
//	{prefix}.documents.{id}.completed     final file-status snapshot
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"github.com/fyrsmithlabs/docctl/internal/poller"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "docctl"

// Event kinds.
const (
	KindTask  = "task"
	KindFiles = "files"
)

// Event is the JSON payload of every published message.
type Event struct {
	Kind     string              `json:"kind"`
	Key      string              `json:"key"`
	Sequence int64               `json:"sequence"`
	Terminal bool                `json:"terminal"`
	Time     time.Time           `json:"time"`
	Task     *poller.Snapshot    `json:"task,omitempty"`
	Files    poller.FileSnapshot `json:"files,omitempty"`
}

// Publisher turns poll snapshots into NATS messages. Publish failures are
// logged and never interrupt polling.
type Publisher struct {
	nc     *nats.Conn
	owned  bool
	prefix string
	logger *logging.Logger
	seq    atomic.Int64
}

// New wraps an existing connection. The caller keeps ownership of nc.
func New(nc *nats.Conn, prefix string, logger *logging.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger.Named("notify")}
}

// Connect dials the configured server. Close releases the connection.
func Connect(cfg config.NATSConfig, logger *logging.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("docctl"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", cfg.URL, err)
	}
	p := New(nc, cfg.SubjectPrefix, logger)
	p.owned = true
	return p, nil
}

// Close flushes pending messages and closes an owned connection.
func (p *Publisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	if !p.owned {
		return p.nc.Flush()
	}
	return p.nc.Drain()
}

// TaskSubject returns the per-snapshot subject for a task handle.
func (p *Publisher) TaskSubject(handle string) string {
	return p.prefix + ".tasks." + token(handle) + ".status"
}

// FilesSubject returns the per-snapshot subject for a document.
func (p *Publisher) FilesSubject(documentID string) string {
	return p.prefix + ".documents." + token(documentID) + ".files"
}

// JobObserver publishes every snapshot of the task poll for handle.
func (p *Publisher) JobObserver(ctx context.Context, handle string) poller.JobObserver {
	base := p.prefix + ".tasks." + token(handle)
	return func(s poller.Snapshot) {
		snap := s
		ev := Event{Kind: KindTask, Key: handle, Terminal: s.Status.IsTerminal(), Task: &snap}
		p.publish(ctx, base+".status", &ev)
		if ev.Terminal {
			p.publish(ctx, base+".completed", &ev)
		}
	}
}

// FileObserver publishes every file-status snapshot of documentID.
func (p *Publisher) FileObserver(ctx context.Context, documentID string) poller.FileObserver {
	base := p.prefix + ".documents." + token(documentID)
	return func(fs poller.FileSnapshot) {
		_, failed := fs.QueryError()
		ev := Event{Kind: KindFiles, Key: documentID, Terminal: failed || fs.Done(), Files: fs}
		p.publish(ctx, base+".files", &ev)
		if ev.Terminal {
			p.publish(ctx, base+".completed", &ev)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, subject string, ev *Event) {
	if ev.Sequence == 0 {
		ev.Sequence = p.seq.Add(1)
		ev.Time = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn(ctx, "encoding snapshot event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn(ctx, "publishing snapshot event", zap.String("subject", subject), zap.Error(err))
		return
	}
	p.logger.Trace(ctx, "published snapshot event", zap.String("subject", subject), zap.Int64("sequence", ev.Sequence))
}

// token makes s safe for use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
