package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/devserver"
	"github.com/fyrsmithlabs/docctl/internal/logging"
)

// resetCommands restores every flag to its default and gives every command
// ctx, since cobra keeps both between executions.
func resetCommands(ctx context.Context, cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		resetCommands(ctx, c)
	}
}

// run executes docctl with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(tokenEnv, "")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	resetCommands(ctx, rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// startDevServer serves scenario and returns the API base URL.
func startDevServer(t *testing.T, scenario string) string {
	t.Helper()
	var sc *devserver.Scenario
	if scenario != "" {
		var err error
		sc, err = devserver.ParseScenario(scenario)
		require.NoError(t, err)
	}
	s, err := devserver.New(config.DevServerConfig{}, sc, logging.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func TestResolveToken(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		configured config.Secret
		env        string
		want       string
	}{
		{name: "flag wins", flag: "f", configured: "c", env: "e", want: "f"},
		{name: "config before env", configured: "c", env: "e", want: "c"},
		{name: "env fallback", env: "e", want: "e"},
		{name: "none", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveToken(tt.flag, tt.configured, tt.env))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "shorter than max", input: "hello", maxLen: 10, want: "hello"},
		{name: "exactly max", input: "hello", maxLen: 5, want: "hello"},
		{name: "longer than max", input: "hello world", maxLen: 8, want: "hello..."},
		{name: "multibyte", input: "승인대기 문서입니다", maxLen: 6, want: "승인대..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.input, tt.maxLen))
		})
	}
}

func TestCommandTree(t *testing.T) {
	paths := [][]string{
		{"login"}, {"logout"}, {"signup"}, {"whoami"},
		{"task", "status"}, {"task", "watch"}, {"task", "active"}, {"task", "cancel"},
		{"files", "status"}, {"files", "watch"},
		{"documents", "list"}, {"documents", "get"}, {"documents", "upload"}, {"documents", "update"},
		{"documents", "delete"}, {"documents", "approve"}, {"documents", "reject"},
		{"documents", "toggle-public"}, {"documents", "delete-file"}, {"documents", "file-visibility"},
		{"documents", "add-files"}, {"documents", "vectorize"}, {"documents", "unvectorize"},
		{"documents", "search"}, {"documents", "download"},
		{"tags", "list"}, {"tags", "create"}, {"tags", "quota"},
		{"search", "keyword"}, {"search", "similar"}, {"search", "qa"}, {"search", "popular-tags"},
		{"admin", "documents"}, {"admin", "users"}, {"admin", "approve-user"}, {"admin", "stats"},
		{"render"}, {"dev-server"}, {"mcp"},
	}
	for _, p := range paths {
		t.Run(strings.Join(p, " "), func(t *testing.T) {
			cmd, rest, err := rootCmd.Find(p)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, p[len(p)-1], cmd.Name())
		})
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	_, _, err := run(t, "", "--server", "ftp://example.com", "task", "active")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create API client")
}

func TestRender(t *testing.T) {
	stdout, _, err := run(t, "# Title\n**bold** [site](https://example.com)\n", "render", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "<h1>Title</h1>")
	assert.Contains(t, stdout, "<strong>bold</strong>")
	assert.Contains(t, stdout, `href="https://example.com"`)
}

func TestRender_MissingFile(t *testing.T) {
	_, _, err := run(t, "", "render", "/nonexistent/summary.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
