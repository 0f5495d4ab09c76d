package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	pageCacheHits   prometheus.Counter
	pageCacheMisses prometheus.Counter
	gcDeleted       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	pageCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "event_page_cache_hits_total",
		Help: "Page tokens resolved from an existing cache row",
	})

	pageCacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "event_page_cache_misses_total",
		Help: "Page cache rows written for newly computed boundaries",
	})

	gcDeleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gc_deleted_overlays_total",
		Help: "Overlay rows removed by garbage collection",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, pageCacheHits, pageCacheMisses, gcDeleted, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		pageCacheHits:   pageCacheHits,
		pageCacheMisses: pageCacheMisses,
		gcDeleted:       gcDeleted,
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

// RecordPageCache counts cache-row reuse versus fresh writes.
func (m *MetricsService) RecordPageCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.pageCacheHits.Inc()
	} else {
		m.pageCacheMisses.Inc()
	}
}

// RecordGCDeleted counts rows removed by the collector.
func (m *MetricsService) RecordGCDeleted(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.gcDeleted.WithLabelValues(reason).Add(float64(count))
}
