package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the intake API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	matchDuration   prometheus.Observer
	matchResults    prometheus.Histogram
	snapshotRecords prometheus.Gauge
	snapshotSkipped prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	oracleDuration  *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

// NewMetricsService registers the core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	matchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_duration_seconds",
		Help:    "Duration of availability match computations",
		Buckets: prometheus.DefBuckets,
	})

	matchResults := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_result_count",
		Help:    "Number of slots returned per match",
		Buckets: []float64{0, 1, 5, 10, 20, 50},
	})

	snapshotRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "availability_snapshot_records",
		Help: "Accepted records in the current availability snapshot",
	})

	snapshotSkipped := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "availability_snapshot_rejected_rows",
		Help: "Rejected rows from the last availability load",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_cache_hits_total",
		Help: "Total extraction cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_cache_misses_total",
		Help: "Total extraction cache misses",
	})

	oracleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oracle_request_duration_seconds",
		Help:    "Duration of oracle completion calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected by the fixed-window limiter",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, matchDuration, matchResults,
		snapshotRecords, snapshotSkipped, cacheHits, cacheMisses, oracleDuration, rateLimited, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		matchDuration:   matchDuration,
		matchResults:    matchResults,
		snapshotRecords: snapshotRecords,
		snapshotSkipped: snapshotSkipped,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		oracleDuration:  oracleDuration,
		rateLimited:     rateLimited,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveMatch records one match computation.
func (m *MetricsService) ObserveMatch(duration time.Duration, results int) {
	if m == nil {
		return
	}
	m.matchDuration.Observe(duration.Seconds())
	m.matchResults.Observe(float64(results))
}

// RecordSnapshot tracks the shape of the current availability snapshot.
func (m *MetricsService) RecordSnapshot(records, rejected int) {
	if m == nil {
		return
	}
	m.snapshotRecords.Set(float64(records))
	m.snapshotSkipped.Set(float64(rejected))
}

// RecordCacheOperation records an extraction cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveOracleCall records one oracle round trip.
func (m *MetricsService) ObserveOracleCall(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.oracleDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRateLimited counts a rejected request.
func (m *MetricsService) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
