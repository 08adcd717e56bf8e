package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	allowed := []string{
		filepath.Join(home, ".config", "docctl", "config.yaml"),
		filepath.Join(home, ".config", "docctl", "profiles", "staging.yaml"),
		"~/.config/docctl/config.yaml",
		"/etc/docctl/config.yaml",
	}
	for _, p := range allowed {
		t.Run("allows "+p, func(t *testing.T) {
			assert.NoError(t, validateConfigPath(p))
		})
	}

	rejected := []string{
		"/etc/passwd",
		"/tmp/config.yaml",
		"/etc/docctl-evil/config.yaml",
		filepath.Join(home, ".config", "docctl", "..", "..", "secrets.yaml"),
		"/etc/docctl/../passwd",
	}
	for _, p := range rejected {
		t.Run("rejects "+p, func(t *testing.T) {
			assert.Error(t, validateConfigPath(p))
		})
	}
}
