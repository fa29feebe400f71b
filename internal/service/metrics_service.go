package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil
// *MetricsService is valid and records nothing.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	validationFailure *prometheus.CounterVec
	uploadBytes       prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	ingestResults     *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_submissions_total",
			Help: "Upload form submissions by outcome",
		}, []string{"outcome"}),
		validationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_validation_failures_total",
			Help: "Field validation failures by field",
		}, []string{"field"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "video_upload_bytes",
			Help:    "Size of accepted video uploads",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		ingestResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_ingest_results_total",
			Help: "Verification outcomes of stored uploads",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.submissions,
		m.validationFailure,
		m.uploadBytes,
		m.cacheLookups,
		m.ingestResults,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordSubmission counts an accepted submission.
func (m *MetricsService) RecordSubmission(sizeBytes int64) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues("accepted").Inc()
	m.uploadBytes.Observe(float64(sizeBytes))
}

// RecordRejection counts a rejected submission and its failing fields.
func (m *MetricsService) RecordRejection(errs FieldErrors) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues("rejected").Inc()
	for _, field := range errs.Fields() {
		m.validationFailure.WithLabelValues(field).Inc()
	}
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordIngest counts a verification outcome.
func (m *MetricsService) RecordIngest(status string) {
	if m == nil {
		return
	}
	m.ingestResults.WithLabelValues(status).Inc()
}
