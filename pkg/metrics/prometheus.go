// Package metrics provides Prometheus metrics for the Shapley computation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	playerBuckets    []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Computation
	jobsSubmitted       prometheus.Counter
	jobsDuplicate       prometheus.Counter
	jobsCompleted       prometheus.Counter
	jobsFailed          *prometheus.CounterVec
	computationLatency  prometheus.Histogram
	evaluations         prometheus.Counter
	permutations        prometheus.Counter
	playersPerGame      prometheus.Histogram
	reportsStored       prometheus.Gauge
	reportEvictions     prometheus.Counter
	syncComputations    prometheus.Counter
	rejectedSubmissions *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount  prometheus.Gauge
	workerBusy   prometheus.Gauge
	workerErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it at startup, before GetRegistry is handed to a handler.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "shapley",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		playerBuckets:    []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.jobsSubmitted = m.counter("jobs_submitted_total", "Games accepted for asynchronous computation")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Submissions rejected as duplicates of a known job id")
	m.jobsCompleted = m.counter("jobs_completed_total", "Jobs whose Shapley values were computed")
	m.jobsFailed = m.counterVec("jobs_failed_total", "Jobs that failed, by error code", "code")
	m.computationLatency = m.histogram("computation_latency_milliseconds", "Time spent in the Shapley engine per game", m.histogramBuckets)
	m.evaluations = m.counter("characteristic_evaluations_total", "Characteristic function evaluations performed")
	m.permutations = m.counter("permutations_total", "Player orderings enumerated")
	m.playersPerGame = m.histogram("players_per_game", "Number of players per computed game", m.playerBuckets)
	m.reportsStored = m.gauge("reports_stored", "Reports currently held in the result store")
	m.reportEvictions = m.counter("report_evictions_total", "Reports evicted from the result store")
	m.syncComputations = m.counter("sync_computations_total", "Games computed synchronously over HTTP")
	m.rejectedSubmissions = m.counterVec("rejected_submissions_total", "Games rejected before computation, by reason", "reason")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued jobs")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Failed enqueue attempts, by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerBusy = m.gauge("worker_busy", "Workers currently computing a job")
	m.workerErrors = m.counter("worker_errors_total", "Errors raised while processing jobs")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time", m.histogramBuckets)
}

// Computation metrics.

func RecordJobSubmitted() {
	globalManager.jobsSubmitted.Inc()
}

func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

func RecordJobCompleted() {
	globalManager.jobsCompleted.Inc()
}

func RecordJobFailed(code string) {
	globalManager.jobsFailed.WithLabelValues(code).Inc()
}

func RecordComputationLatency(ms float64) {
	globalManager.computationLatency.Observe(ms)
}

func RecordSyncComputation() {
	globalManager.syncComputations.Inc()
}

func RecordRejectedSubmission(reason string) {
	globalManager.rejectedSubmissions.WithLabelValues(reason).Inc()
}

func UpdateReportsStored(count int) {
	globalManager.reportsStored.Set(float64(count))
}

func RecordReportEviction() {
	globalManager.reportEvictions.Inc()
}

func RecordPlayersPerGame(players int) {
	globalManager.playersPerGame.Observe(float64(players))
}

// RecordWork adds the permutations and evaluations of one engine run.
func RecordWork(permutations, evaluations int) {
	globalManager.permutations.Add(float64(permutations))
	globalManager.evaluations.Add(float64(evaluations))
}

// Queue metrics.

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(ratio float64) {
	globalManager.queueUtilization.Set(ratio)
}

func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Worker metrics.

func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

func IncWorkerBusy() {
	globalManager.workerBusy.Inc()
}

func DecWorkerBusy() {
	globalManager.workerBusy.Dec()
}

func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global manager reports to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
