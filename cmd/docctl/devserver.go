package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/docctl/internal/devserver"
)

var (
	// dev-server command flags
	devHost     string
	devPort     int
	devScenario string
	devNoWatch  bool
)

func init() {
	rootCmd.AddCommand(devServerCmd)
	devServerCmd.Flags().StringVar(&devHost, "host", "", "Listen host (default from config)")
	devServerCmd.Flags().IntVar(&devPort, "port", 0, "Listen port (default from config)")
	devServerCmd.Flags().StringVar(&devScenario, "scenario", "", "Scenario TOML file (default from config)")
	devServerCmd.Flags().BoolVar(&devNoWatch, "no-watch", false, "Do not reload the scenario when it changes")
}

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a scripted stand-in for the API",
	Long: `Run a local server that answers the task, file status, login and
upload endpoints from a TOML scenario. Each status query advances the
script by one step. Faults can inject 503 responses and dropped
connections. The scenario is reloaded when the file changes.

Metrics are served on /metrics.

Examples:
  # Serve a scenario on the default port
  docctl dev-server --scenario scenarios/slow-upload.toml

  # Point the CLI at it
  docctl --server http://127.0.0.1:8001/api task watch abc123`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

func runDevServer(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	cfg := a.cfg.DevServer
	if devHost != "" {
		cfg.Host = devHost
	}
	if devPort != 0 {
		cfg.Port = devPort
	}
	if devScenario != "" {
		cfg.Scenario = devScenario
	}

	var scenario *devserver.Scenario
	if cfg.Scenario != "" {
		var err error
		if scenario, err = devserver.LoadScenario(cfg.Scenario); err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
	}

	srv, err := devserver.New(cfg, scenario, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create dev server: %w", err)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(srv.Start)
	if cfg.Scenario != "" && !devNoWatch {
		g.Go(func() error { return srv.WatchScenario(ctx, cfg.Scenario) })
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "Dev server listening on http://%s (API at /api)\n", srv.Addr())
	if err := g.Wait(); err != nil {
		return fmt.Errorf("dev server: %w", err)
	}
	a.logger.Info(cmd.Context(), "dev server stopped", zap.String("addr", srv.Addr()))
	return nil
}
