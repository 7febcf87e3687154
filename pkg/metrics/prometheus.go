// Package metrics provides Prometheus metrics for the profitboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the profitboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion - spreadsheet pulls and normalization
	fetchTotal    *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	rowsLoaded    prometheus.Gauge
	rowsDropped   *prometheus.CounterVec
	loadsTotal    *prometheus.CounterVec
	lastLoadUnix  prometheus.Gauge
	persistErrors prometheus.Counter

	// Cache - two tiers, memory and file
	cacheLookups *prometheus.CounterVec
	cacheAge     prometheus.Gauge
	cacheWrites  *prometheus.CounterVec

	// Reports
	reportCache   *prometheus.CounterVec
	reportLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "profitboard",
		subsystem:        "ingest",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	latencyBuckets := []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

	m.fetchTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_total",
		Help:        "Spreadsheet pulls by outcome (success, source_unavailable, empty_source, validation_failed)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_latency_milliseconds",
		Help:        "Latency of a spreadsheet pull including normalization",
		Buckets:     latencyBuckets,
		ConstLabels: m.constLabels,
	})

	m.rowsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_loaded",
		Help:        "Rows in the most recently delivered table",
		ConstLabels: m.constLabels,
	})

	m.rowsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_dropped_total",
		Help:        "Rows dropped during normalization by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.loadsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "loads_total",
		Help:        "Orchestrated loads by origin (cache, live) and outcome",
		ConstLabels: m.constLabels,
	}, []string{"origin", "outcome"})

	m.lastLoadUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_load_unixtime",
		Help:        "Unix time of the last successful load",
		ConstLabels: m.constLabels,
	})

	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "persist_errors_total",
		Help:        "Cache writes that failed after a successful pull",
		ConstLabels: m.constLabels,
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "cache",
		Name:        "lookups_total",
		Help:        "Cache lookups by tier (memory, file) and result (hit, miss, stale, corrupt)",
		ConstLabels: m.constLabels,
	}, []string{"tier", "result"})

	m.cacheAge = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "cache",
		Name:        "entry_age_seconds",
		Help:        "Age of the persisted cache entry when last inspected",
		ConstLabels: m.constLabels,
	})

	m.cacheWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "cache",
		Name:        "writes_total",
		Help:        "Cache writes by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.reportCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "cache_total",
		Help:        "Report memo lookups by result (hit, miss)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.reportLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "report",
		Name:        "build_latency_milliseconds",
		Help:        "Time to filter and aggregate a report",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        "request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     latencyBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        "errors_total",
			Help:        "HTTP errors by endpoint, method and error type",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Current memory usage in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutine_count",
		Help:        "Current number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

// Ingestion Metrics Functions.

// RecordFetch records the outcome and latency of one spreadsheet pull.
func RecordFetch(outcome string, latencyMs float64) {
	globalManager.fetchTotal.WithLabelValues(outcome).Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordRowsDropped adds n dropped rows under reason.
func RecordRowsDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.rowsDropped.WithLabelValues(reason).Add(float64(n))
}

// UpdateRowsLoaded sets the size of the delivered table.
func UpdateRowsLoaded(n int) {
	globalManager.rowsLoaded.Set(float64(n))
}

// RecordLoad counts an orchestrated load. A successful load also stamps
// last_load_unixtime.
func RecordLoad(origin, outcome string, unixTime int64) {
	globalManager.loadsTotal.WithLabelValues(origin, outcome).Inc()
	if outcome == "success" {
		globalManager.lastLoadUnix.Set(float64(unixTime))
	}
}

// RecordPersistError counts a cache write failure observed by the loader.
func RecordPersistError() {
	globalManager.persistErrors.Inc()
}

// Cache Metrics Functions.

// RecordCacheLookup counts a lookup against one cache tier.
func RecordCacheLookup(tier, result string) {
	globalManager.cacheLookups.WithLabelValues(tier, result).Inc()
}

// UpdateCacheAge sets the age of the persisted entry in seconds.
func UpdateCacheAge(seconds float64) {
	globalManager.cacheAge.Set(seconds)
}

// RecordCacheWrite counts a cache write by outcome (success, error).
func RecordCacheWrite(outcome string) {
	globalManager.cacheWrites.WithLabelValues(outcome).Inc()
}

// Report Metrics Functions.

// RecordReportCache counts a report memo hit or miss.
func RecordReportCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.reportCache.WithLabelValues(result).Inc()
}

// RecordReportLatency records how long building a report took.
func RecordReportLatency(latencyMs float64) {
	globalManager.reportLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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
