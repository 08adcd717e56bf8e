package devserver

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of one dev server. Each server
// owns its registry so several can run in one process.
//
// Metrics:
//   - devserver_requests_total{method,route,status}
//   - devserver_request_duration_seconds{route}
//   - devserver_faults_total{kind}
//   - devserver_scenario_reloads_total{result}
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FaultsTotal     *prometheus.CounterVec
	ReloadsTotal    *prometheus.CounterVec
}

// NewMetrics creates the instruments on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devserver_requests_total",
				Help: "Total number of requests served",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devserver_request_duration_seconds",
				Help:    "Request handling time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		FaultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devserver_faults_total",
				Help: "Total number of injected transport faults",
			},
			[]string{"kind"}, // "fail" or "drop"
		),
		ReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devserver_scenario_reloads_total",
				Help: "Total number of scenario reloads",
			},
			[]string{"result"}, // "ok" or "error"
		),
	}
}

func (m *Metrics) observe(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
