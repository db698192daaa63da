package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bloombuddy"

// Registry holds all application metrics.
//
// All recording methods are safe to call on a nil *Registry, which lets
// components run without metrics in tests.
type Registry struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Telemetry metrics
	TelemetryIngest *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec
	FanoutsActive prometheus.Gauge

	// Auth metrics
	TokensIssued *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus all BloomBuddy metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		TelemetryIngest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_ingest_total",
			Help:      "Telemetry pushes by result",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Per-device notification deliveries by payload kind and result",
		}, []string{"kind", "result"}),
		FanoutsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanouts_in_flight",
			Help:      "Notification fan-outs currently running",
		}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Bearer tokens issued by subject kind",
		}, []string{"kind"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected credentials by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.TelemetryIngest,
		r.Notifications,
		r.FanoutsActive,
		r.TokensIssued,
		r.AuthFailures,
	)
	return r
}

// Prometheus exposes the underlying registry so storage engines can
// register their own collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.registry.MustRegister(cs...)
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRequest counts a finished HTTP request.
func (r *Registry) RecordRequest(method, route, status string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records request latency in seconds.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordIngest counts a telemetry push ("ok", "malformed", "unauthorized", "error").
func (r *Registry) RecordIngest(result string) {
	if r == nil {
		return
	}
	r.TelemetryIngest.WithLabelValues(result).Inc()
}

// RecordNotification counts one per-device delivery attempt.
func (r *Registry) RecordNotification(kind, result string) {
	if r == nil {
		return
	}
	r.Notifications.WithLabelValues(kind, result).Inc()
}

// IncFanoutsActive marks a fan-out as started.
func (r *Registry) IncFanoutsActive() {
	if r == nil {
		return
	}
	r.FanoutsActive.Inc()
}

// DecFanoutsActive marks a fan-out as finished.
func (r *Registry) DecFanoutsActive() {
	if r == nil {
		return
	}
	r.FanoutsActive.Dec()
}

// RecordTokenIssued counts an issued token.
func (r *Registry) RecordTokenIssued(kind string) {
	if r == nil {
		return
	}
	r.TokensIssued.WithLabelValues(kind).Inc()
}

// RecordAuthFailure counts a rejected credential.
func (r *Registry) RecordAuthFailure(reason string) {
	if r == nil {
		return
	}
	r.AuthFailures.WithLabelValues(reason).Inc()
}
