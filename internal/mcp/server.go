// Package mcp exposes task and file-status polling to MCP clients over
// stdio, so an assistant can upload through other means and wait on the
// result here.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"github.com/fyrsmithlabs/docctl/internal/notify"
	"github.com/fyrsmithlabs/docctl/internal/poller"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Backend is the part of the API client the tools use.
type Backend interface {
	poller.JobSource
	poller.FileSource
	SearchByKeyword(ctx context.Context, keyword string, tags []string, page, limit int) (*apiclient.SearchResponse, error)
}

// Server is an MCP server backed by the document API.
type Server struct {
	mcp       *mcp.Server
	backend   Backend
	poller    config.PollerConfig
	publisher *notify.Publisher
	metrics   *Metrics
	logger    *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name (default: "docctl")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Poller holds the poll intervals and attempt budgets for the wait tools.
	Poller config.PollerConfig

	// Publisher, when set, receives every snapshot observed by the wait tools.
	Publisher *notify.Publisher

	Logger *logging.Logger
}

// NewServer creates a server with every tool registered.
func NewServer(cfg Config, backend Backend) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.Name == "" {
		cfg.Name = "docctl"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	logger := cfg.Logger.Named("mcp")

	s := &Server{
		mcp:       mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		backend:   backend,
		poller:    cfg.Poller,
		publisher: cfg.Publisher,
		metrics:   NewMetrics(logger),
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP on stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single session on t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
