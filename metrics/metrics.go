// Package metrics provides Prometheus collectors for engine calls.
//
// A nil *Metrics is valid and records nothing, so callers need not check
// whether metrics are enabled.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/signadot/objbridge/diag"
)

// Config configures the collectors.
type Config struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"omitempty,printascii"`
	// Buckets of the call duration histogram; prometheus.DefBuckets if
	// empty.
	Buckets []float64 `yaml:"buckets,omitempty" json:"buckets,omitempty"`
}

// Metrics holds the engine collectors and the registry they belong to.
type Metrics struct {
	calls       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	diagnostics *prometheus.CounterVec
	resolutions *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry.  It returns nil when cfg
// is not enabled.
func New(cfg Config) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	ns := cfg.Namespace
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "calls_total",
				Help:      "Engine calls by operation and result",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "call_duration_seconds",
				Help:      "Duration of engine calls in seconds",
				Buckets:   buckets,
			},
			[]string{"op"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "diagnostics_total",
				Help:      "Diagnostics recorded by engine calls",
			},
			[]string{"op", "code"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "reference_resolutions_total",
				Help:      "Reference resolutions by winning strategy",
			},
			[]string{"strategy"},
		),
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration, m.diagnostics, m.resolutions} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Result labels.
const (
	ResultOK      = "ok"
	ResultPartial = "partial"
	ResultError   = "error"
)

// ObserveCall records one engine call started at start.
func (m *Metrics) ObserveCall(op string, start time.Time, log *diag.Log, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	switch {
	case err != nil:
		result = ResultError
	case log.Failed():
		result = ResultPartial
	}
	m.calls.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	for _, d := range log.Entries() {
		m.diagnostics.WithLabelValues(op, string(d.Code)).Inc()
	}
}

// ObserveResolution records a resolved reference.
func (m *Metrics) ObserveResolution(strategy string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strategy).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes Handler at /metrics on addr until the server fails.
func (m *Metrics) Serve(addr string) error {
	if m == nil {
		return errors.New("metrics are not enabled")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}
