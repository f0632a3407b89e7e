package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry           *prometheus.Registry
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
	ingestRunsTotal    prometheus.Counter
	ingestRunDuration  prometheus.Histogram
	fetchFailures      *prometheus.CounterVec
	rowsFetched        *prometheus.CounterVec
	rowsDropped        *prometheus.CounterVec
	inventoryDevices   *prometheus.GaugeVec
	mapRebuildsTotal   prometheus.Counter
}

// New creates a fresh Metrics registry with HTTP, ingest, and map metrics
// registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citygrid",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by core-go",
	}, []string{"method", "path", "status"})

	httpRequestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "citygrid",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by core-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	ingestRunsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "citygrid",
		Name:      "ingest_runs_total",
		Help:      "Total number of sheet ingest cycles completed",
	})

	ingestRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "citygrid",
		Name:      "ingest_run_duration_seconds",
		Help:      "Duration of one ingest cycle across all categories",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	fetchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citygrid",
		Name:      "sheet_fetch_failures_total",
		Help:      "Count of failed sheet fetches per device category",
	}, []string{"category"})

	rowsFetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citygrid",
		Name:      "sheet_rows_fetched_total",
		Help:      "Count of raw rows accepted from the sheets per category",
	}, []string{"category"})

	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citygrid",
		Name:      "sheet_rows_dropped_total",
		Help:      "Count of fetched rows that could not be normalized per category",
	}, []string{"category"})

	inventoryDevices := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "citygrid",
		Name:      "inventory_devices",
		Help:      "Normalized devices currently in the inventory per category",
	}, []string{"category"})

	mapRebuildsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "citygrid",
		Name:      "map_rebuilds_total",
		Help:      "Total number of map layer rebuilds",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestLatency,
		ingestRunsTotal,
		ingestRunDuration,
		fetchFailures,
		rowsFetched,
		rowsDropped,
		inventoryDevices,
		mapRebuildsTotal,
	)

	return &Metrics{
		registry:           registry,
		httpRequests:       httpRequests,
		httpRequestLatency: httpRequestLatency,
		ingestRunsTotal:    ingestRunsTotal,
		ingestRunDuration:  ingestRunDuration,
		fetchFailures:      fetchFailures,
		rowsFetched:        rowsFetched,
		rowsDropped:        rowsDropped,
		inventoryDevices:   inventoryDevices,
		mapRebuildsTotal:   mapRebuildsTotal,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestLatency.With(labels).Observe(duration.Seconds())
}

// IncIngestRun increments the ingest cycle counter.
func (m *Metrics) IncIngestRun() {
	if m == nil {
		return
	}
	m.ingestRunsTotal.Inc()
}

// ObserveIngestRunDuration observes one ingest cycle duration.
func (m *Metrics) ObserveIngestRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.ingestRunDuration.Observe(duration.Seconds())
}

// IncFetchFailure counts a failed sheet fetch for a category.
func (m *Metrics) IncFetchFailure(category string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(category).Inc()
}

// AddRowsFetched counts accepted raw rows for a category.
func (m *Metrics) AddRowsFetched(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsFetched.WithLabelValues(category).Add(float64(n))
}

// AddRowsDropped counts fetched rows that failed normalization for a
// category.
func (m *Metrics) AddRowsDropped(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsDropped.WithLabelValues(category).Add(float64(n))
}

// SetInventoryDevices records the current normalized device count for a
// category.
func (m *Metrics) SetInventoryDevices(category string, n int) {
	if m == nil {
		return
	}
	m.inventoryDevices.WithLabelValues(category).Set(float64(n))
}

// IncMapRebuild increments the map rebuild counter.
func (m *Metrics) IncMapRebuild() {
	if m == nil {
		return
	}
	m.mapRebuildsTotal.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
