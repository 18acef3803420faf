// Package metrics provides Prometheus metrics for the dutylog service.
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

// Manager manages all Prometheus metrics for the dutylog service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Record store
	recordsIngested   prometheus.Counter
	recordsDeleted    prometheus.Counter
	recordsDuplicate  prometheus.Counter
	recordsTotal      prometheus.Gauge
	rosterSize        prometheus.Gauge
	bandCount         prometheus.Gauge
	storeQueryLatency *prometheus.HistogramVec

	// Fatigue engine
	fatigueComputations  *prometheus.CounterVec
	fatigueLatency       prometheus.Histogram
	invalidTimestamps    prometheus.Counter
	fatigueScore         *prometheus.GaugeVec
	boardLastRefreshUnix prometheus.Gauge

	// Refresh queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueCoalesced   prometheus.Counter
	workerCount      prometheus.Gauge
	workerErrors     prometheus.Counter
	workerProcessing prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dutylog",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often gauge metrics should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether recording functions have any effect.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // comprehensive metrics initialization
	auto := promauto.With(m.registry)
	msBuckets := []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

	m.recordsIngested = m.counter("records_ingested_total", "Total number of participation records stored")
	m.recordsDeleted = m.counter("records_deleted_total", "Total number of participation records deleted")
	m.recordsDuplicate = m.counter("records_duplicate_total", "Total number of duplicate record submissions ignored")
	m.recordsTotal = m.gauge("records", "Current number of stored participation records")
	m.rosterSize = m.gauge("roster_size", "Current number of people on the roster")
	m.bandCount = m.gauge("fatigue_bands", "Number of configured fatigue bands")
	m.storeQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name:    "store_query_latency_ms",
		Help:    "Record store operation latency in milliseconds",
		Buckets: msBuckets,
	}, []string{"operation"})

	m.fatigueComputations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name: "fatigue_computations_total",
		Help: "Total number of fatigue computations by mode",
	}, []string{"mode"})
	m.fatigueLatency = m.histogram("fatigue_compute_latency_ms", "Fatigue computation latency in milliseconds", msBuckets)
	m.invalidTimestamps = m.counter("invalid_timestamps_total", "Records dropped because their timestamp could not be normalized")
	m.fatigueScore = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name: "fatigue_score",
		Help: "Latest fatigue score per person from the board snapshot",
	}, []string{"person"})
	m.boardLastRefreshUnix = m.gauge("board_last_refresh_unix", "Unix time of the last board refresh")

	m.queueSize = m.gauge("refresh_queue_size", "Pending refresh requests")
	m.queueCapacity = m.gauge("refresh_queue_capacity", "Capacity of the refresh queue")
	m.queueEnqueued = m.counter("refresh_enqueued_total", "Refresh requests accepted by the queue")
	m.queueDequeued = m.counter("refresh_dequeued_total", "Refresh requests handed to workers")
	m.queueCoalesced = m.counter("refresh_coalesced_total", "Refresh requests dropped because one was already pending")
	m.workerCount = m.gauge("refresh_workers", "Number of refresh workers")
	m.workerErrors = m.counter("refresh_worker_errors_total", "Refresh attempts that failed")
	m.workerProcessing = m.histogram("refresh_latency_ms", "Board refresh latency in milliseconds", msBuckets)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name: "http_requests_total",
		Help: "Total HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds",
		Buckets: msBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name: "errors_by_component_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.customLabels,
		Name: "errors_by_endpoint_total",
		Help: "Errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_ms", "Average GC pause in milliseconds", m.histogramBuckets)
}

// Record store metrics.

// RecordRecordIngested increments the stored records counter.
func RecordRecordIngested() {
	if globalManager.enabled {
		globalManager.recordsIngested.Inc()
	}
}

// RecordRecordsDeleted adds n to the deleted records counter.
func RecordRecordsDeleted(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.recordsDeleted.Add(float64(n))
	}
}

// RecordDuplicateSubmission increments the duplicate submission counter.
func RecordDuplicateSubmission() {
	if globalManager.enabled {
		globalManager.recordsDuplicate.Inc()
	}
}

// UpdateRecordsTotal sets the stored records gauge.
func UpdateRecordsTotal(count int) {
	globalManager.recordsTotal.Set(float64(count))
}

// UpdateRosterSize sets the roster size gauge.
func UpdateRosterSize(count int) {
	globalManager.rosterSize.Set(float64(count))
}

// UpdateBandCount sets the configured bands gauge.
func UpdateBandCount(count int) {
	globalManager.bandCount.Set(float64(count))
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// Fatigue engine metrics.

// RecordFatigueComputation counts a computation in the given mode ("snapshot", "series").
func RecordFatigueComputation(mode string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.fatigueComputations.WithLabelValues(mode).Inc()
	globalManager.fatigueLatency.Observe(latencyMs)
}

// RecordInvalidTimestamps adds n to the dropped timestamps counter.
func RecordInvalidTimestamps(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.invalidTimestamps.Add(float64(n))
	}
}

// UpdateFatigueScores replaces the per-person fatigue gauges.
func UpdateFatigueScores(scores map[string]float64) {
	globalManager.fatigueScore.Reset()
	for person, v := range scores {
		globalManager.fatigueScore.WithLabelValues(person).Set(v)
	}
	globalManager.boardLastRefreshUnix.Set(float64(time.Now().Unix()))
}

// Refresh queue and worker metrics.

// UpdateQueueSize sets the pending refresh requests gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the refresh queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueCoalesced increments the coalesced refresh counter.
func RecordQueueCoalesced() {
	globalManager.queueCoalesced.Inc()
}

// UpdateWorkerCount sets the number of refresh workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records a refresh latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessing.Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
