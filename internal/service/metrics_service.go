package service

import (
	"fmt"
	"net/http"
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
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	recordsCreated    prometheus.Counter
	duplicatesSkipped prometheus.Counter
	notificationsSent prometheus.Counter
	notificationsFail prometheus.Counter
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	recordsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_records_created_total",
		Help: "Attendance records created by marking calls",
	})

	duplicatesSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_duplicates_skipped_total",
		Help: "Students skipped because a record already existed for the day",
	})

	notificationsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parent_notifications_sent_total",
		Help: "Parent notifications delivered",
	})

	notificationsFail := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parent_notifications_failed_total",
		Help: "Parent notifications that failed to deliver",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		recordsCreated, duplicatesSkipped, notificationsSent, notificationsFail)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		recordsCreated:    recordsCreated,
		duplicatesSkipped: duplicatesSkipped,
		notificationsSent: notificationsSent,
		notificationsFail: notificationsFail,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheOperation records a cache lookup outcome.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordAttendanceMarked counts created records and skipped duplicates.
func (m *MetricsService) RecordAttendanceMarked(created, skipped int) {
	if m == nil {
		return
	}
	m.recordsCreated.Add(float64(created))
	m.duplicatesSkipped.Add(float64(skipped))
}

// RecordNotification counts one notification outcome.
func (m *MetricsService) RecordNotification(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.notificationsSent.Inc()
	} else {
		m.notificationsFail.Inc()
	}
}
