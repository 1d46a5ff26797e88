// Package metrics provides Prometheus metrics for the selector service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Records
	recordsTotal prometheus.Gauge
	mutations    *prometheus.CounterVec

	// Retraining
	retrains          *prometheus.CounterVec
	retrainDuration   prometheus.Histogram
	retrainSamples    prometheus.Gauge
	retrainCoalesced  prometheus.Counter
	trainingLoss      prometheus.Gauge
	trainingAccuracy  prometheus.Gauge
	modelGeneration   prometheus.Gauge
	modelSaveErrors   prometheus.Counter
	retrainQueueSize  prometheus.Gauge
	retrainQueueDrops prometheus.Counter

	// Predictions
	predictions      *prometheus.CounterVec
	predictionCache  *prometheus.CounterVec
	predictionErrors prometheus.Counter

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "selector",
		subsystem:        "performance",
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

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.recordsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("records_total"),
		Help:        "Number of performance records currently stored",
		ConstLabels: labels,
	})

	m.mutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("mutations_total"),
		Help:        "Record mutations by operation and outcome",
		ConstLabels: labels,
	}, []string{"op", "status"})

	m.retrains = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("retrains_total"),
		Help:        "Model retrains by outcome",
		ConstLabels: labels,
	}, []string{"status"})

	m.retrainDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("retrain_duration_milliseconds"),
		Help:        "Wall time of a full retrain including the model write",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: labels,
	})

	m.retrainSamples = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("retrain_samples"),
		Help:        "Number of samples used by the latest retrain",
		ConstLabels: labels,
	})

	m.retrainCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("retrain_requests_coalesced_total"),
		Help:        "Retrain requests answered by a retrain started for another request",
		ConstLabels: labels,
	})

	m.trainingLoss = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("training_loss"),
		Help:        "Binary cross-entropy after the final epoch of the latest retrain",
		ConstLabels: labels,
	})

	m.trainingAccuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("training_accuracy"),
		Help:        "Training-set accuracy of the latest retrain",
		ConstLabels: labels,
	})

	m.modelGeneration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_generation"),
		Help:        "Generation of the network currently serving predictions",
		ConstLabels: labels,
	})

	m.modelSaveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_save_errors_total"),
		Help:        "Failed writes of the model file",
		ConstLabels: labels,
	})

	m.retrainQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("retrain_queue_size"),
		Help:        "Retrain requests waiting for the trainer",
		ConstLabels: labels,
	})

	m.retrainQueueDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("retrain_queue_rejections_total"),
		Help:        "Retrain requests rejected because the queue was full or closed",
		ConstLabels: labels,
	})

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("predictions_total"),
		Help:        "Suitability predictions by outcome",
		ConstLabels: labels,
	}, []string{"suitable"})

	m.predictionCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_cache_total"),
		Help:        "Prediction cache lookups by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.predictionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_errors_total"),
		Help:        "Predictions rejected by the model",
		ConstLabels: labels,
	})

	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("repository_query_latency_milliseconds"),
		Help:        "Record store latency by operation",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("error_latency_milliseconds"),
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Record metrics.

// UpdateRecordsTotal sets the number of stored records.
func UpdateRecordsTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recordsTotal.Set(float64(count))
}

// RecordMutation counts a record mutation; status is "ok", "not_found" or "error".
func RecordMutation(op, status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.mutations.WithLabelValues(op, status).Inc()
}

// Retrain metrics.

// RecordRetrain counts a retrain outcome ("success" or "failed").
func RecordRetrain(status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.retrains.WithLabelValues(status).Inc()
}

// RecordRetrainDuration records retrain wall time in milliseconds.
func RecordRetrainDuration(ms float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.retrainDuration.Observe(ms)
}

// UpdateRetrainSamples sets the sample count of the latest retrain.
func UpdateRetrainSamples(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.retrainSamples.Set(float64(n))
}

// RecordRetrainCoalesced counts requests folded into another retrain.
func RecordRetrainCoalesced(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.retrainCoalesced.Add(float64(n))
}

// UpdateTrainingQuality sets the loss and accuracy of the latest retrain.
func UpdateTrainingQuality(loss, accuracy float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.trainingLoss.Set(loss)
	globalManager.trainingAccuracy.Set(accuracy)
}

// UpdateModelGeneration sets the serving model generation.
func UpdateModelGeneration(gen uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.modelGeneration.Set(float64(gen))
}

// RecordModelSaveError counts a failed model write.
func RecordModelSaveError() {
	if !globalManager.enabled {
		return
	}
	globalManager.modelSaveErrors.Inc()
}

// UpdateRetrainQueueSize sets the retrain backlog.
func UpdateRetrainQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.retrainQueueSize.Set(float64(size))
}

// RecordRetrainQueueRejection counts a rejected retrain request.
func RecordRetrainQueueRejection() {
	if !globalManager.enabled {
		return
	}
	globalManager.retrainQueueDrops.Inc()
}

// Prediction metrics.

// RecordPrediction counts a served prediction.
func RecordPrediction(suitable bool) {
	if !globalManager.enabled {
		return
	}
	label := "false"
	if suitable {
		label = "true"
	}
	globalManager.predictions.WithLabelValues(label).Inc()
}

// RecordPredictionCache counts a cache lookup.
func RecordPredictionCache(hit bool) {
	if !globalManager.enabled {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.predictionCache.WithLabelValues(result).Inc()
}

// RecordPredictionError counts a rejected prediction.
func RecordPredictionError() {
	if !globalManager.enabled {
		return
	}
	globalManager.predictionErrors.Inc()
}

// RecordRepositoryQueryLatency records store latency for op in milliseconds.
func RecordRepositoryQueryLatency(op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often callers should refresh gauge metrics.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
