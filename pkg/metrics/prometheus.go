// Package metrics provides Prometheus metrics for the reputation bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector the bot exports.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Webhook intake
	webhookDeliveries  *prometheus.CounterVec
	deliveriesDup      prometheus.Counter
	signatureFailures  prometheus.Counter
	deliveryLatency    *prometheus.HistogramVec
	dedupeEntries      prometheus.Gauge
	participantsPerRun prometheus.Histogram

	// Scoring
	scoreComputations prometheus.Counter
	scoreErrors       prometheus.Counter
	scoringLatency    prometheus.Histogram
	scoreTotals       prometheus.Histogram

	// GitHub API
	githubRequests *prometheus.CounterVec
	githubLatency  *prometheus.HistogramVec

	// Comment publishing
	commentUpserts *prometheus.CounterVec

	// Queue and workers
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueueErr prometheus.Counter
	workerCount     prometheus.Gauge
	workerLatency   prometheus.Histogram

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

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "repbot",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.webhookDeliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "webhook_deliveries_total",
		Help:        "Webhook deliveries by GitHub event and outcome",
		ConstLabels: labels,
	}, []string{"event", "outcome"})

	m.deliveriesDup = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "webhook_duplicate_deliveries_total",
		Help:        "Deliveries skipped because their delivery ID was already processed",
		ConstLabels: labels,
	})

	m.signatureFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "webhook_signature_failures_total",
		Help:        "Deliveries rejected because the HMAC signature did not match",
		ConstLabels: labels,
	})

	m.deliveryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "webhook_processing_milliseconds",
		Help:        "Time spent handling one delivery end to end",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"event"})

	m.dedupeEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "dedupe_entries",
		Help:        "Delivery IDs currently remembered by the deduper",
		ConstLabels: labels,
	})

	m.participantsPerRun = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "participants_per_summary",
		Help:        "Number of users scored for one summary comment",
		Buckets:     []float64{1, 2, 3, 5, 8, 10, 15, 20},
		ConstLabels: labels,
	})

	m.scoreComputations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "score_computations_total",
		Help:        "User scores computed",
		ConstLabels: labels,
	})

	m.scoreErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "score_errors_total",
		Help:        "User score computations that failed",
		ConstLabels: labels,
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "scoring_latency_milliseconds",
		Help:        "Time to collect activity and score one user",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.scoreTotals = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "score_total_points",
		Help:        "Distribution of computed reputation totals",
		Buckets:     []float64{-100, -50, -10, 0, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})

	m.githubRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "github_requests_total",
		Help:        "GitHub API requests by operation and status code",
		ConstLabels: labels,
	}, []string{"operation", "status_code"})

	m.githubLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "github_request_duration_milliseconds",
		Help:        "GitHub API request latency by operation",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"operation"})

	m.commentUpserts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "comment_upserts_total",
		Help:        "Summary comment upserts by outcome (created, updated, fallback)",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "queue_size",
		Help:        "Score jobs waiting for a worker",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "queue_capacity",
		Help:        "Maximum number of waiting score jobs",
		ConstLabels: labels,
	})

	m.queueEnqueueErr = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "queue_enqueue_errors_total",
		Help:        "Score jobs rejected because the queue was full or closed",
		ConstLabels: labels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "worker_count",
		Help:        "Score workers running",
		ConstLabels: labels,
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "worker_processing_latency_milliseconds",
		Help:        "Time a worker spends on one score job",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and error type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: labels,
	})
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauges sampled by cmd are refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func on() bool { return globalManager != nil && globalManager.enabled }

// Webhook intake.

// RecordWebhookDelivery counts a delivery by event and outcome.
func RecordWebhookDelivery(event, outcome string) {
	if on() {
		globalManager.webhookDeliveries.WithLabelValues(event, outcome).Inc()
	}
}

// RecordDuplicateDelivery counts a skipped redelivery.
func RecordDuplicateDelivery() {
	if on() {
		globalManager.deliveriesDup.Inc()
	}
}

// RecordSignatureFailure counts a rejected signature.
func RecordSignatureFailure() {
	if on() {
		globalManager.signatureFailures.Inc()
	}
}

// RecordDeliveryLatency records end-to-end delivery handling time.
func RecordDeliveryLatency(event string, latencyMs float64) {
	if on() {
		globalManager.deliveryLatency.WithLabelValues(event).Observe(latencyMs)
	}
}

// UpdateDedupeEntries sets the deduper size.
func UpdateDedupeEntries(n int64) {
	if on() {
		globalManager.dedupeEntries.Set(float64(n))
	}
}

// RecordParticipants records how many users one summary scored.
func RecordParticipants(n int) {
	if on() {
		globalManager.participantsPerRun.Observe(float64(n))
	}
}

// Scoring.

// RecordScoreComputed records a successful score and its total.
func RecordScoreComputed(total int, latencyMs float64) {
	if on() {
		globalManager.scoreComputations.Inc()
		globalManager.scoreTotals.Observe(float64(total))
		globalManager.scoringLatency.Observe(latencyMs)
	}
}

// RecordScoreError counts a failed score computation.
func RecordScoreError() {
	if on() {
		globalManager.scoreErrors.Inc()
	}
}

// GitHub API.

// RecordGitHubRequest records one GitHub API call.
func RecordGitHubRequest(operation, statusCode string, latencyMs float64) {
	if on() {
		globalManager.githubRequests.WithLabelValues(operation, statusCode).Inc()
		globalManager.githubLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// Comment publishing.

// RecordCommentUpsert counts an upsert outcome.
func RecordCommentUpsert(outcome string) {
	if on() {
		globalManager.commentUpserts.WithLabelValues(outcome).Inc()
	}
}

// Queue and workers.

// UpdateQueueSize sets the number of waiting jobs.
func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	if on() {
		globalManager.queueEnqueueErr.Inc()
	}
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records one job's processing time.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if on() {
		globalManager.workerLatency.Observe(latencyMs)
	}
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if on() {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint records an HTTP error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if on() {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// System.

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if on() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it before serving; recorders do not synchronize with it.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// RefreshInterval is how often the global manager's sampled gauges are refreshed.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the registry the bot's collectors live in.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
