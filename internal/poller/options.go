package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/config"
	"github.com/fyrsmithlabs/docctl/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidOptions is returned before any query when the handle or
// options are unusable.
var ErrInvalidOptions = errors.New("invalid poll options")

const (
	DefaultJobInterval      = 2 * time.Second
	DefaultJobMaxAttempts   = 30
	DefaultFileInterval     = 3 * time.Second
	DefaultFileMaxAttempts  = 20
	DefaultTransportRetries = 3
)

// Options configures one poll session. Zero values take the defaults of
// the poller they are passed to.
type Options struct {
	Interval    time.Duration
	MaxAttempts int

	// TransportRetries is the number of consecutive failed queries the
	// file poller absorbs. The task poller does not retry.
	TransportRetries int

	Logger  *logging.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// JobOptions returns task poller options from the poller config section.
func JobOptions(pc config.PollerConfig) Options {
	return Options{
		Interval:    pc.JobInterval.Duration(),
		MaxAttempts: pc.JobMaxAttempts,
	}
}

// FileOptions returns file poller options from the poller config section.
func FileOptions(pc config.PollerConfig) Options {
	return Options{
		Interval:         pc.FileInterval.Duration(),
		MaxAttempts:      pc.FileMaxAttempts,
		TransportRetries: pc.TransportRetries,
	}
}

func (o Options) resolve(interval time.Duration, maxAttempts int) (Options, error) {
	if o.Interval < 0 {
		return o, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidOptions, o.Interval)
	}
	if o.MaxAttempts < 0 {
		return o, fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidOptions, o.MaxAttempts)
	}
	if o.TransportRetries < 0 {
		return o, fmt.Errorf("%w: transport retries must be >= 0, got %d", ErrInvalidOptions, o.TransportRetries)
	}

	if o.Interval == 0 {
		o.Interval = interval
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = maxAttempts
	}
	if o.TransportRetries == 0 {
		o.TransportRetries = DefaultTransportRetries
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = defaultMetrics(o.Logger)
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(instrumentationName)
	}
	return o, nil
}
