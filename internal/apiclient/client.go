// Package apiclient talks to the document-management REST API.
//
// Every request carries the session's bearer token and an X-Request-ID.
// Transport failures (connection errors, timeouts) are retried with linear
// backoff; HTTP responses are never retried. A 401 clears the session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"github.com/fyrsmithlabs/docctl/internal/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/docctl/internal/apiclient"

	defaultBaseURL      = "http://127.0.0.1:8001/api"
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 2
	defaultRetryBackoff = 2 * time.Second
	defaultUserAgent    = "docctl"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 64 * 1024
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// MaxRetries is the number of times a request is re-sent after a
	// transport failure. Negative disables retries.
	MaxRetries int
	// RetryBackoff is multiplied by the retry number: 2s, 4s, ...
	RetryBackoff time.Duration

	// RateLimit in requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int

	UserAgent  string
	AdminEmail string

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// ConfigFrom maps the api config section onto a Config.
func ConfigFrom(ac config.APIConfig) Config {
	return Config{
		BaseURL:      ac.BaseURL,
		Timeout:      ac.Timeout.Duration(),
		MaxRetries:   ac.MaxRetries,
		RetryBackoff: ac.RetryBackoff.Duration(),
		RateLimit:    ac.RateLimit,
		Burst:        ac.Burst,
		AdminEmail:   ac.AdminEmail,
	}
}

// Client is safe for concurrent use.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	userAgent  string
	adminEmail string

	session *session.Session
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *clientMetrics
}

// New returns a client for cfg. sess may be nil for anonymous use; logger
// may be nil.
func New(cfg Config, sess *session.Session, logger *logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch {
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if sess == nil {
		sess = session.New("")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("apiclient")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		userAgent:  cfg.UserAgent,
		adminEmail: cfg.AdminEmail,
		session:    sess,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		metrics:    defaultMetrics(logger),
	}, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API root, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// request describes one API call. body is re-read from the start on every
// attempt.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	// route labels metrics and spans; defaults to path.
	route string
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload == nil {
		return r, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("encode request body: %w", err)
	}
	r.body = b
	r.contentType = "application/json"
	return r, nil
}

// doJSON sends req and decodes a 2xx JSON response into out. out may be nil.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

// do sends req and returns a 2xx response whose body the caller must close.
func (c *Client) do(ctx context.Context, req request) (*http.Response, error) {
	route := req.route
	if route == "" {
		route = req.path
	}

	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)
	ctx, span := c.tracer.Start(ctx, "apiclient "+req.method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", req.method),
		attribute.String("url.path", req.path),
		attribute.String("request.id", requestID),
	)

	target := c.resolve(req.path, req.query)
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Warn(ctx, "retrying request after transport error",
				zap.String("method", req.method),
				zap.String("path", req.path),
				zap.Int("retry", attempt),
				zap.Int("max_retries", c.maxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			c.metrics.recordRetry(ctx, req.method, route)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s %s: %w", req.method, req.path, ctx.Err())
			case <-time.After(backoff):
			}
		}

		// Every send, retries included, takes a limiter token.
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
			}
			return nil, fmt.Errorf("%s %s: rate limiter: %w", req.method, req.path, err)
		}

		resp, err := c.send(ctx, req, target, requestID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
			}
			lastErr = err
			continue
		}

		c.metrics.recordRequest(ctx, req.method, route, resp.StatusCode, time.Since(start))
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		c.logger.Debug(ctx, "api response",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("elapsed", time.Since(start)),
		)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		apiErr := newAPIError(req.method, req.path, resp)
		resp.Body.Close()
		span.SetStatus(codes.Error, apiErr.Error())

		if resp.StatusCode == http.StatusUnauthorized {
			c.logger.Info(ctx, "session rejected by server, clearing credentials")
			c.session.Clear()
		}
		if resp.StatusCode >= 500 {
			c.logger.Error(ctx, "server error", zap.Int("status", resp.StatusCode), zap.String("detail", apiErr.Detail))
		}
		return nil, apiErr
	}

	c.metrics.recordRequest(ctx, req.method, route, 0, time.Since(start))
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "transport failure")
	c.logger.Error(ctx, "request failed",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Error(lastErr),
	)
	return nil, &TransportError{Method: req.method, Path: req.path, Attempts: c.maxRetries + 1, Err: lastErr}
}

func (c *Client) send(ctx context.Context, req request, target, requestID string) (*http.Response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token := c.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(httpReq)
}

// resolve joins path onto the base URL. path is already escaped.
func (c *Client) resolve(path string, query url.Values) string {
	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// seg escapes one path segment.
func seg(s string) string {
	return url.PathEscape(s)
}
