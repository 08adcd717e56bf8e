package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docctl/internal/uploadguard"
)

// ErrSecretsFound is returned when an upload is refused by the secret scan.
var ErrSecretsFound = errors.New("secrets found in upload")

const allowlistFile = "upload-allowlist.toml"

// allowlistPaths returns the default allowlist location followed by any
// given with --allowlist.
func allowlistPaths(extra []string) []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "docctl", allowlistFile))
	}
	return append(paths, extra...)
}

// checkSecrets scans files and summary before an upload. Findings are
// written to stderr; they block the upload unless --allow-secrets is set.
func (a *app) checkSecrets(ctx context.Context, stderr io.Writer, files []string, summary string) error {
	allow, err := uploadguard.LoadAllowlists(allowlistPaths(docAllowlists)...)
	if err != nil {
		return fmt.Errorf("failed to load allowlist: %w", err)
	}
	guard, err := uploadguard.New(uploadguard.Options{Allowlist: allow, Logger: a.logger})
	if err != nil {
		return fmt.Errorf("failed to create secret scanner: %w", err)
	}

	report, err := guard.Scan(ctx, files, summary)
	if err != nil {
		return fmt.Errorf("secret scan failed: %w", err)
	}
	for _, s := range report.Skipped {
		a.logger.Debug(ctx, "not scanned", zap.String("path", s.Path), zap.String("reason", s.Reason))
	}
	if report.Clean() {
		return nil
	}

	writeFindings(stderr, report.Findings)
	if docAllowSecrets {
		fmt.Fprintln(stderr, "Uploading anyway (--allow-secrets).")
		return nil
	}
	return fmt.Errorf("%w: %d finding(s), rerun with --allow-secrets to upload anyway", ErrSecretsFound, len(report.Findings))
}

func writeFindings(w io.Writer, findings []uploadguard.Finding) {
	fmt.Fprintf(w, "Secret scan found %d potential secret(s):\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
