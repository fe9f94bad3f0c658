// Package metrics provides Prometheus metrics for the comparison rating service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ledger metrics.
	eventsRecorded  prometheus.Counter
	eventsRewritten prometheus.Counter
	eventLifecycle  *prometheus.CounterVec

	// Rebuild metrics.
	rebuildsTotal   prometheus.Counter
	rebuildDuration prometheus.Histogram

	// Snapshot scale gauges.
	totalEvents   prometheus.Gauge
	ratedVideos   prometheus.Gauge
	categoryCount prometheus.Gauge

	// Write retry metrics.
	retryQueueDepth prometheus.Gauge
	retryAttempts   prometheus.Counter
	failedWrites    prometheus.Counter

	// Maintenance metrics.
	cleanupRuns         prometheus.Counter
	cleanupPrunedEvents prometheus.Counter

	// Import metrics.
	importsAccepted prometheus.Counter
	importsRejected prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ncompare",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_recorded_total",
		Help:      "Total number of new comparison events appended to the ledger",
	})

	m.eventsRewritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rewritten_total",
		Help:      "Total number of in-place verdict updates on existing events",
	})

	m.eventLifecycle = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "event_lifecycle_total",
			Help:      "Event lifecycle transitions by action (disable, restore, purge)",
		},
		[]string{"action"},
	)

	m.rebuildsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rebuilds_total",
		Help:      "Total number of full rating rebuilds",
	})

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rebuild_duration_milliseconds",
		Help:      "Histogram of full rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.totalEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_events",
		Help:      "Current number of events in the ledger (including disabled)",
	})

	m.ratedVideos = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rated_videos",
		Help:      "Current number of rating snapshots across all categories",
	})

	m.categoryCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "categories",
		Help:      "Current number of categories",
	})

	m.retryQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retry_queue_depth",
		Help:      "Current depth of the event write retry queue",
	})

	m.retryAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retry_attempts_total",
		Help:      "Total number of event persistence retry attempts",
	})

	m.failedWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "failed_writes_total",
		Help:      "Total number of event writes that exhausted the retry budget",
	})

	m.cleanupRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cleanup_runs_total",
		Help:      "Total number of maintenance sweeps executed",
	})

	m.cleanupPrunedEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cleanup_pruned_events_total",
		Help:      "Total number of disabled events purged by maintenance sweeps",
	})

	m.importsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "imports_accepted_total",
		Help:      "Total number of accepted snapshot imports",
	})

	m.importsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "imports_rejected_total",
		Help:      "Total number of rejected snapshot imports",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordEventRecorded increments the appended-event counter.
func RecordEventRecorded() {
	globalManager.eventsRecorded.Inc()
}

// RecordEventRewritten increments the in-place verdict update counter.
func RecordEventRewritten() {
	globalManager.eventsRewritten.Inc()
}

// RecordEventLifecycle counts a lifecycle transition by action name.
func RecordEventLifecycle(action string) {
	globalManager.eventLifecycle.WithLabelValues(action).Inc()
}

// RecordRebuild counts one full rebuild and observes its duration.
func RecordRebuild(durationMs float64) {
	globalManager.rebuildsTotal.Inc()
	globalManager.rebuildDuration.Observe(durationMs)
}

// UpdateLedgerEvents sets the current ledger size gauge.
func UpdateLedgerEvents(count int) {
	globalManager.totalEvents.Set(float64(count))
}

// UpdateRatedVideos sets the rating-snapshot count gauge.
func UpdateRatedVideos(count int) {
	globalManager.ratedVideos.Set(float64(count))
}

// UpdateCategoryCount sets the category count gauge.
func UpdateCategoryCount(count int) {
	globalManager.categoryCount.Set(float64(count))
}

// UpdateRetryQueueDepth sets the retry queue depth gauge.
func UpdateRetryQueueDepth(depth int) {
	globalManager.retryQueueDepth.Set(float64(depth))
}

// RecordRetryAttempt increments the retry attempt counter.
func RecordRetryAttempt() {
	globalManager.retryAttempts.Inc()
}

// RecordFailedWrite increments the exhausted-retry counter.
func RecordFailedWrite() {
	globalManager.failedWrites.Inc()
}

// RecordCleanupRun counts one maintenance sweep and the events it purged.
func RecordCleanupRun(prunedEvents int) {
	globalManager.cleanupRuns.Inc()
	globalManager.cleanupPrunedEvents.Add(float64(prunedEvents))
}

// RecordImportAccepted increments the accepted import counter.
func RecordImportAccepted() {
	globalManager.importsAccepted.Inc()
}

// RecordImportRejected increments the rejected import counter.
func RecordImportRejected() {
	globalManager.importsRejected.Inc()
}

// RecordHTTPRequest records an HTTP request by endpoint, method and status.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used for serving /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
