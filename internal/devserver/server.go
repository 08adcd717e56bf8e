// Package devserver is a scripted stand-in for the document API. It replays
// task and file-status sequences from a TOML scenario so the client, the
// CLI and the TUI can be exercised without the real backend.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// TokenTTL is the lifetime written into issued tokens.
const TokenTTL = time.Hour

// Server serves a scenario over HTTP.
type Server struct {
	echo    *echo.Echo
	state   *state
	logger  *logging.Logger
	metrics *Metrics
	config  config.DevServerConfig
}

// New creates a server playing scenario. A nil scenario answers every task
// with PENDING and every document with 404 until uploads create scripts.
func New(cfg config.DevServerConfig, scenario *Scenario, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger is required for request tracking")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8001
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		state:   newState(scenario),
		logger:  logger.Named("devserver"),
		metrics: NewMetrics(),
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLog)

	s.registerRoutes()
	return s, nil
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		duration := time.Since(start)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		status := c.Response().Status
		s.metrics.observe(c.Request().Method, route, status, duration)
		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	s.echo.POST("/api/auth/login", s.handleLogin)

	api := s.echo.Group("/api", s.bearerAuth())
	api.GET("/tasks/active/list", s.handleActiveTasks)
	api.GET("/tasks/:id", s.handleTaskStatus)
	api.DELETE("/tasks/:id", s.handleCancelTask)
	api.GET("/documents/:id/files/status", s.handleFileStatus)
	api.POST("/documents/upload", s.handleUpload)
}

// Handler returns the HTTP handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Metrics returns the server's instruments.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Reload replaces the scenario and rewinds all scripts.
func (s *Server) Reload(scenario *Scenario) {
	s.state.reload(scenario)
	s.metrics.ReloadsTotal.WithLabelValues("ok").Inc()
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting dev server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down dev server")
	return s.echo.Shutdown(ctx)
}
