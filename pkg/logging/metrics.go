package logging

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector records bot metrics in its own Prometheus registry. All
// methods are safe to call on a nil collector.
type MetricsCollector struct {
	// Inbound events
	eventsTotal   *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	repliesTotal  *prometheus.CounterVec

	// Domain
	searchResults     prometheus.Histogram
	charactersCreated prometheus.Counter
	activeSessions    prometheus.Gauge

	// Storage
	storageOperations *prometheus.CounterVec
	storageLatency    *prometheus.HistogramVec

	errorsTotal *prometheus.CounterVec
	auditEvents *prometheus.CounterVec

	registry *prometheus.Registry
	config   MetricsConfig
}

// MetricsConfig defines configuration for metrics collection
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Namespace     string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	EnableRuntime bool   `yaml:"enableRuntime" json:"enableRuntime"`
}

// DefaultMetricsConfig returns default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       true,
		Namespace:     "komikshub",
		EnableRuntime: true,
	}
}

// NewMetricsCollector creates a new metrics collector, nil when disabled
func NewMetricsCollector(config MetricsConfig) *MetricsCollector {
	if !config.Enabled {
		return nil
	}
	ns := config.Namespace

	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		config:   config,

		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "bot", Name: "events_total",
			Help: "Inbound chat events by kind and transport.",
		}, []string{"kind", "transport"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "bot", Name: "event_duration_seconds",
			Help:    "Time spent handling one inbound event.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "bot", Name: "replies_total",
			Help: "Replies produced, by outcome.",
		}, []string{"outcome"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "search", Name: "results",
			Help:    "Number of characters matched per search.",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		}),
		charactersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "catalog", Name: "characters_created_total",
			Help: "Characters added through the creation dialogue.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "dialogue", Name: "active_sessions",
			Help: "Dialogue sessions currently held in memory.",
		}),
		storageOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "storage", Name: "operations_total",
			Help: "Storage operations by backend, operation and result.",
		}, []string{"backend", "operation", "result"}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "storage", Name: "latency_seconds",
			Help:    "Storage operation latency.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"backend", "operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "errors_total",
			Help: "Logged errors by code and operation.",
		}, []string{"code", "operation"}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "audit", Name: "events_total",
			Help: "Audit events written, by type and result.",
		}, []string{"event_type", "result"}),
	}

	mc.registry.MustRegister(
		mc.eventsTotal,
		mc.eventDuration,
		mc.repliesTotal,
		mc.searchResults,
		mc.charactersCreated,
		mc.activeSessions,
		mc.storageOperations,
		mc.storageLatency,
		mc.errorsTotal,
		mc.auditEvents,
	)
	if config.EnableRuntime {
		mc.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return mc
}

// RecordEvent counts an inbound event and observes how long it took
func (mc *MetricsCollector) RecordEvent(kind, transport string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.eventsTotal.WithLabelValues(kind, transport).Inc()
	mc.eventDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordReply counts a reply by outcome ("detail", "not_found", "silent", ...)
func (mc *MetricsCollector) RecordReply(outcome string) {
	if mc == nil {
		return
	}
	mc.repliesTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch observes the number of characters a search matched
func (mc *MetricsCollector) RecordSearch(matches int) {
	if mc == nil {
		return
	}
	mc.searchResults.Observe(float64(matches))
}

// RecordCharacterCreated counts a committed creation dialogue
func (mc *MetricsCollector) RecordCharacterCreated() {
	if mc == nil {
		return
	}
	mc.charactersCreated.Inc()
}

// SetActiveSessions sets the number of live dialogue sessions
func (mc *MetricsCollector) SetActiveSessions(n int) {
	if mc == nil {
		return
	}
	mc.activeSessions.Set(float64(n))
}

// RecordStorageOperation records one backend call
func (mc *MetricsCollector) RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	if mc == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	mc.storageOperations.WithLabelValues(backend, operation, result).Inc()
	mc.storageLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordError counts a logged error
func (mc *MetricsCollector) RecordError(code, operation string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(code, operation).Inc()
}

// RecordAuditEvent counts an audit event
func (mc *MetricsCollector) RecordAuditEvent(eventType, result string) {
	if mc == nil {
		return
	}
	mc.auditEvents.WithLabelValues(eventType, result).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}

// GetHTTPHandler returns the HTTP handler for the metrics endpoint
func (mc *MetricsCollector) GetHTTPHandler() http.Handler {
	if mc == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
