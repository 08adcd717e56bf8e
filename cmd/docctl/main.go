// Package main implements the docctl CLI for the document-management API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"github.com/fyrsmithlabs/docctl/internal/notify"
	"github.com/fyrsmithlabs/docctl/internal/session"
	"github.com/fyrsmithlabs/docctl/internal/telemetry"
)

const tokenEnv = "DOCCTL_API_TOKEN"

var (
	// global flags
	configPath string
	serverURL  string
	apiToken   string
	jsonOutput bool
	logLevel   string

	// version information
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docctl",
	Short: "CLI for the document-management API",
	Long: `docctl is a command-line client for the document-management API.
It uploads documents, follows their processing tasks, and manages tags,
search and administration.

Configuration is read from ~/.config/docctl/config.yaml and DOCCTL_*
environment variables. The API token is taken from --token, then the
api.token setting, then DOCCTL_API_TOKEN.

Examples:
  # Log in and export the token
  export DOCCTL_API_TOKEN=$(docctl login --email me@example.com --password-stdin < pw.txt)

  # Upload a document and wait for processing
  docctl documents upload --title "Q3 report" --file report.pdf --wait

  # Follow a task in a terminal dashboard
  docctl task watch abc123 --tui`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setupApp,
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
			a.close(cmd.Context())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/docctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL, overrides api.base_url")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
}

type appKey struct{}

// app carries what a command run needs. It is built once per invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	session   *session.Session
	client    *apiclient.Client
	publisher *notify.Publisher
	out       io.Writer
}

func setupApp(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if serverURL != "" {
		cfg.API.BaseURL = serverURL
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.NewLogger(logging.FromConfig(cfg.Logging), nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	sess := session.New(resolveToken(apiToken, cfg.API.Token, os.Getenv(tokenEnv)))
	sess.OnClear(func() {
		logger.Warn(ctx, "credentials rejected, session cleared")
	})

	client, err := apiclient.New(apiclient.ConfigFrom(cfg.API), sess, logger)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		session:   sess,
		client:    client,
		out:       cmd.OutOrStdout(),
	}

	if cfg.NATS.Enabled {
		pub, err := notify.Connect(cfg.NATS, logger)
		if err != nil {
			// Polling works without notifications.
			logger.Warn(ctx, "nats unavailable, snapshots will not be published",
				zap.String("url", cfg.NATS.URL), zap.Error(err))
		} else {
			a.publisher = pub
		}
	}

	cmd.SetContext(logging.WithLogger(context.WithValue(ctx, appKey{}, a), logger))
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Debug(ctx, "closing publisher", zap.Error(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		a.logger.Debug(ctx, "telemetry shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// appFrom returns the app built by setupApp.
func appFrom(cmd *cobra.Command) *app {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		panic("docctl: command run without setup")
	}
	return a
}

// resolveToken picks the first non-empty token: flag, config, environment.
func resolveToken(flag string, configured config.Secret, env string) string {
	switch {
	case flag != "":
		return flag
	case configured.IsSet():
		return configured.Value()
	default:
		return env
	}
}

// requireToken fails fast when a command needs credentials.
func (a *app) requireToken() error {
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in: pass --token, set api.token, or export " + tokenEnv)
	}
	return nil
}

// emit writes v as JSON when --json is set, otherwise calls text.
func (a *app) emit(v any, text func(w io.Writer) error) error {
	if jsonOutput {
		return outputJSON(a.out, v)
	}
	return text(a.out)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
