// Package config provides configuration loading for docctl.
//
// Configuration is read from an optional YAML file, overridden by DOCCTL_*
// environment variables, and completed with defaults. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds the complete docctl configuration.
type Config struct {
	API       APIConfig       `koanf:"api"`
	Poller    PollerConfig    `koanf:"poller"`
	NATS      NATSConfig      `koanf:"nats"`
	DevServer DevServerConfig `koanf:"devserver"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// APIConfig holds settings for the document-management REST API.
type APIConfig struct {
	BaseURL      string   `koanf:"base_url"`
	Timeout      Duration `koanf:"timeout"`
	MaxRetries   int      `koanf:"max_retries"`   // -1 disables transport retries
	RetryBackoff Duration `koanf:"retry_backoff"` // linear: retry n waits n*backoff
	RateLimit    float64  `koanf:"rate_limit"`    // requests per second, 0 = unlimited
	Burst        int      `koanf:"burst"`
	Token        Secret   `koanf:"token"`
	AdminEmail   string   `koanf:"admin_email"`
}

// PollerConfig holds defaults for task and file status polling.
type PollerConfig struct {
	JobInterval      Duration `koanf:"job_interval"`
	JobMaxAttempts   int      `koanf:"job_max_attempts"`
	FileInterval     Duration `koanf:"file_interval"`
	FileMaxAttempts  int      `koanf:"file_max_attempts"`
	TransportRetries int      `koanf:"transport_retries"`
}

// NATSConfig controls publishing of poll snapshots to NATS.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// DevServerConfig holds settings for the scripted development backend.
type DevServerConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Scenario string `koanf:"scenario"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // grpc or http/protobuf
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the API base URL is not an absolute http(s) URL
//   - timeouts, intervals or attempt counts are not positive
//   - the dev server port is outside 1-65535
//   - NATS is enabled without a URL
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base_url %q: %w", c.API.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout.Duration() <= 0 {
		return errors.New("api timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api rate_limit must be >= 0, got %v", c.API.RateLimit)
	}

	if c.Poller.JobInterval.Duration() <= 0 || c.Poller.FileInterval.Duration() <= 0 {
		return errors.New("poller intervals must be positive")
	}
	if c.Poller.JobMaxAttempts < 1 || c.Poller.FileMaxAttempts < 1 {
		return errors.New("poller max attempts must be at least 1")
	}
	if c.Poller.TransportRetries < 0 {
		return fmt.Errorf("poller transport_retries must be >= 0, got %d", c.Poller.TransportRetries)
	}

	if c.DevServer.Port < 1 || c.DevServer.Port > 65535 {
		return fmt.Errorf("invalid devserver port: %d (must be 1-65535)", c.DevServer.Port)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats url required when nats is enabled")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://127.0.0.1:8001/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(30 * time.Second)
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = 2
	}
	if cfg.API.RetryBackoff == 0 {
		cfg.API.RetryBackoff = Duration(2 * time.Second)
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 5
	}

	// Whole-task and per-file defaults differ in the backend's own UI
	if cfg.Poller.JobInterval == 0 {
		cfg.Poller.JobInterval = Duration(2 * time.Second)
	}
	if cfg.Poller.JobMaxAttempts == 0 {
		cfg.Poller.JobMaxAttempts = 30
	}
	if cfg.Poller.FileInterval == 0 {
		cfg.Poller.FileInterval = Duration(3 * time.Second)
	}
	if cfg.Poller.FileMaxAttempts == 0 {
		cfg.Poller.FileMaxAttempts = 20
	}
	if cfg.Poller.TransportRetries == 0 {
		cfg.Poller.TransportRetries = 3
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "docctl"
	}

	if cfg.DevServer.Host == "" {
		cfg.DevServer.Host = "127.0.0.1"
	}
	if cfg.DevServer.Port == 0 {
		cfg.DevServer.Port = 8001
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "docctl"
	}
}
