package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:8001/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout.Duration())
	assert.Equal(t, 2, cfg.API.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.API.RetryBackoff.Duration())

	assert.Equal(t, 2*time.Second, cfg.Poller.JobInterval.Duration())
	assert.Equal(t, 30, cfg.Poller.JobMaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Poller.FileInterval.Duration())
	assert.Equal(t, 20, cfg.Poller.FileMaxAttempts)
	assert.Equal(t, 3, cfg.Poller.TransportRetries)

	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "docctl", cfg.NATS.SubjectPrefix)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "/api" },
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.API.BaseURL = "ftp://example.com/api" },
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.API.RateLimit = -1 },
			wantErr: "rate_limit",
		},
		{
			name:    "zero job attempts",
			mutate:  func(c *Config) { c.Poller.JobMaxAttempts = 0 },
			wantErr: "max attempts",
		},
		{
			name:    "zero file interval",
			mutate:  func(c *Config) { c.Poller.FileInterval = 0 },
			wantErr: "intervals must be positive",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.DevServer.Port = 70000 },
			wantErr: "invalid devserver port",
		},
		{
			name: "nats without url",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.URL = ""
			},
			wantErr: "nats url required",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("eyJhbGciOi.payload.sig")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "Secret([REDACTED])", s.GoString())
	assert.Equal(t, "eyJhbGciOi.payload.sig", s.Value())
	assert.True(t, s.IsSet())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(data))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
