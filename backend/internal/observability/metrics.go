// backend/internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors on a private registry.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	skippedRecords    prometheus.Counter
	catalogMismatches prometheus.Counter
	alertsReported    prometheus.Counter
}

// NewMetrics registers the gateway collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		skippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradefetch_skipped_records_total",
			Help: "Classwork records left out of reports because the date or score was unreadable.",
		}),
		catalogMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradefetch_catalog_mismatches_total",
			Help: "Requests rejected because classwork did not match the course catalog.",
		}),
		alertsReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradefetch_alerts_reported_total",
			Help: "Classwork alerts returned to clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.skippedRecords,
		m.catalogMismatches,
		m.alertsReported,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests under a fixed route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SkippedRecords counts n classwork records dropped from a report.
func (m *Metrics) SkippedRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedRecords.Add(float64(n))
}

// CatalogMismatch counts a request rejected for disagreeing with the catalog.
func (m *Metrics) CatalogMismatch() {
	if m == nil {
		return
	}
	m.catalogMismatches.Inc()
}

// AlertsReported counts n alerts returned to a client.
func (m *Metrics) AlertsReported(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsReported.Add(float64(n))
}
