package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve task and search tools over MCP stdio",
	Long: `Run an MCP server on stdin/stdout exposing task_status, task_wait,
document_files_wait and search_documents. Logs go to stderr.

Examples:
  # Register with an MCP client
  {"command": "docctl", "args": ["mcp"], "env": {"DOCCTL_API_TOKEN": "..."}}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	srv, err := mcp.NewServer(mcp.Config{
		Version:   version,
		Poller:    a.cfg.Poller,
		Publisher: a.publisher,
		Logger:    a.logger,
	}, a.client)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	if err := srv.Run(cmd.Context()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
