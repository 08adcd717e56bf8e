package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the docctl config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "docctl")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `api:
  base_url: https://docs.example.com/api
  timeout: 10s
  token: abc.def.ghi
poller:
  job_interval: 500ms
  job_max_attempts: 5
nats:
  enabled: true
  url: nats://broker:4222
logging:
  format: json
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout.Duration())
	assert.Equal(t, "abc.def.ghi", cfg.API.Token.Value())
	assert.Equal(t, 500*time.Millisecond, cfg.Poller.JobInterval.Duration())
	assert.Equal(t, 5, cfg.Poller.JobMaxAttempts)
	assert.Equal(t, 20, cfg.Poller.FileMaxAttempts, "unset fields keep defaults")
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `api:
  base_url: https://file.example.com/api
poller:
  file_max_attempts: 7
`, 0600)

	t.Setenv("DOCCTL_API_BASE_URL", "https://env.example.com/api")
	t.Setenv("DOCCTL_POLLER_FILE_MAX_ATTEMPTS", "9")
	t.Setenv("DOCCTL_POLLER_TRANSPORT_RETRIES", "5")
	t.Setenv("DOCCTL_API_TOKEN", "from-env")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 9, cfg.Poller.FileMaxAttempts)
	assert.Equal(t, 5, cfg.Poller.TransportRetries)
	assert.Equal(t, "from-env", cfg.API.Token.Value())
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "api:\n  timeout: 5s\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_RejectsOversizedFile(t *testing.T) {
	dir := setupTestHome(t)
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	path := writeConfig(t, dir, string(big), 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadWithFile_RejectsInvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "api:\n  base_url: not-a-url\n", 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "api.base_url", envKey("DOCCTL_API_BASE_URL"))
	assert.Equal(t, "poller.job_max_attempts", envKey("DOCCTL_POLLER_JOB_MAX_ATTEMPTS"))
	assert.Equal(t, "nats.enabled", envKey("DOCCTL_NATS_ENABLED"))
	assert.Equal(t, "verbose", envKey("DOCCTL_VERBOSE"))
}
