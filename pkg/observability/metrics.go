package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the platform
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Guard metrics
	GuardDecisionsTotal   *prometheus.CounterVec
	GuardPipelineDuration *prometheus.HistogramVec

	// Session metrics
	SessionLookupsTotal *prometheus.CounterVec
	SessionCacheHits    prometheus.Counter
	SessionCacheMisses  prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atrium_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_guard_decisions_total",
				Help: "Authorization guard decisions by kind and outcome",
			},
			[]string{"guard", "outcome"},
		),
		GuardPipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atrium_guard_pipeline_duration_seconds",
				Help:    "Time spent evaluating the authorization pipeline",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"guard"},
		),
		SessionLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_session_lookups_total",
				Help: "Session store lookups by result",
			},
			[]string{"result"},
		),
		SessionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atrium_session_cache_hits_total",
			Help: "Session record cache hits",
		}),
		SessionCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atrium_session_cache_misses_total",
			Help: "Session record cache misses",
		}),
		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atrium_db_connections_active",
			Help: "Active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atrium_db_connections_idle",
			Help: "Idle database connections",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GuardDecisionsTotal,
		m.GuardPipelineDuration,
		m.SessionLookupsTotal,
		m.SessionCacheHits,
		m.SessionCacheMisses,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records a completed HTTP request
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveDecision records a guard decision
func (m *Metrics) ObserveDecision(guard, outcome string, duration time.Duration) {
	m.GuardDecisionsTotal.WithLabelValues(guard, outcome).Inc()
	m.GuardPipelineDuration.WithLabelValues(guard).Observe(duration.Seconds())
}
