// Package metrics provides Prometheus metrics for the gympulse KPI service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	eventsRejected  *prometheus.CounterVec
	eventsStored    prometheus.Counter

	// Snapshots
	snapshotsComputed      *prometheus.CounterVec
	snapshotComputeLatency prometheus.Histogram
	snapshotEventsScanned  prometheus.Histogram
	snapshotCacheHits      prometheus.Counter
	snapshotCacheMisses    prometheus.Counter
	snapshotCacheErrors    prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Store
	storeAppendLatency prometheus.Histogram
	storeFetchLatency  prometheus.Histogram

	// Kafka
	kafkaMessages *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// Runtime
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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gympulse",
		subsystem:        "kpi",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(
		m.counterOpts("events_ingested_total", "Events accepted for storage by event type"),
		[]string{"type"},
	)
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("events_duplicate_total", "Events acknowledged without storing because their id was already seen"))
	m.eventsRejected = auto.NewCounterVec(
		m.counterOpts("events_rejected_total", "Events rejected before queueing by reason"),
		[]string{"reason"},
	)
	m.eventsStored = auto.NewCounter(m.counterOpts("events_stored_total", "Events written to the event store"))

	m.snapshotsComputed = auto.NewCounterVec(
		m.counterOpts("snapshots_total", "Snapshots served by status"),
		[]string{"status"},
	)
	m.snapshotComputeLatency = auto.NewHistogram(m.histogramOpts("snapshot_compute_latency_milliseconds", "Time to fetch inputs and compute a snapshot", nil))
	m.snapshotEventsScanned = auto.NewHistogram(m.histogramOpts("snapshot_events_scanned", "Events read for one snapshot",
		prometheus.ExponentialBuckets(10, 4, 8)))
	m.snapshotCacheHits = auto.NewCounter(m.counterOpts("snapshot_cache_hits_total", "Snapshots served from the cache"))
	m.snapshotCacheMisses = auto.NewCounter(m.counterOpts("snapshot_cache_misses_total", "Snapshot cache lookups that missed"))
	m.snapshotCacheErrors = auto.NewCounter(m.counterOpts("snapshot_cache_errors_total", "Snapshot cache operations that failed"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Events waiting in the ingestion queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of the ingestion queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Ingestion queue fill ratio (0.0 to 1.0)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Enqueue attempts that failed"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured ingestion workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently storing an event"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time for a worker to store one event", nil))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Events a worker failed to store"))

	m.storeAppendLatency = auto.NewHistogram(m.histogramOpts("store_append_latency_milliseconds", "Event store append latency", nil))
	m.storeFetchLatency = auto.NewHistogram(m.histogramOpts("store_fetch_latency_milliseconds", "Event store fetch latency", nil))

	m.kafkaMessages = auto.NewCounterVec(
		m.counterOpts("kafka_messages_total", "Kafka messages consumed by outcome"),
		[]string{"outcome"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordEventIngested counts an accepted event of the given type.
func RecordEventIngested(eventType string) {
	globalManager.eventsIngested.WithLabelValues(eventType).Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventRejected counts an event rejected for reason.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// RecordEventStored increments the stored events counter.
func RecordEventStored() {
	globalManager.eventsStored.Inc()
}

// RecordSnapshot counts a served snapshot by status.
func RecordSnapshot(status string) {
	globalManager.snapshotsComputed.WithLabelValues(status).Inc()
}

// RecordSnapshotLatency records compute latency in milliseconds.
func RecordSnapshotLatency(latencyMs float64) {
	globalManager.snapshotComputeLatency.Observe(latencyMs)
}

// RecordSnapshotEventsScanned records how many events fed a snapshot.
func RecordSnapshotEventsScanned(n int) {
	globalManager.snapshotEventsScanned.Observe(float64(n))
}

// RecordSnapshotCacheHit increments the cache hit counter.
func RecordSnapshotCacheHit() {
	globalManager.snapshotCacheHits.Inc()
}

// RecordSnapshotCacheMiss increments the cache miss counter.
func RecordSnapshotCacheMiss() {
	globalManager.snapshotCacheMisses.Inc()
}

// RecordSnapshotCacheError increments the cache error counter.
func RecordSnapshotCacheError() {
	globalManager.snapshotCacheErrors.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordStoreAppendLatency records event append latency.
func RecordStoreAppendLatency(latencyMs float64) {
	globalManager.storeAppendLatency.Observe(latencyMs)
}

// RecordStoreFetchLatency records event fetch latency.
func RecordStoreFetchLatency(latencyMs float64) {
	globalManager.storeFetchLatency.Observe(latencyMs)
}

// RecordKafkaMessage counts a consumed message by outcome.
func RecordKafkaMessage(outcome string) {
	globalManager.kafkaMessages.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
