package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the report API.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	notifications    prometheus.Counter
	activePanels     prometheus.Gauge

	submissionCount uint64
	deniedCount     uint64
}

// MetricsSnapshot is a point-in-time summary of report activity.
type MetricsSnapshot struct {
	Submissions uint64    `json:"submissions"`
	Denied      uint64    `json:"denied"`
	Goroutines  int       `json:"goroutines"`
	GeneratedAt time.Time `json:"generatedAt"`
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

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_request_submissions_total",
		Help: "Report request submission attempts by outcome",
	}, []string{"outcome"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_upstream_duration_seconds",
		Help:    "Duration of calls to the on-demand report service",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})

	notifications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_notifications_total",
		Help: "User notifications emitted by the report panel",
	})

	activePanels := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "report_panels_active",
		Help: "Report panels currently held in memory",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, upstreamDuration, notifications, activePanels, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		submissions:      submissions,
		upstreamDuration: upstreamDuration,
		notifications:    notifications,
		activePanels:     activePanels,
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

// RecordSubmission counts a submission attempt by outcome.
func (m *MetricsService) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.submissionCount, 1)
	if outcome == "DENIED" {
		atomic.AddUint64(&m.deniedCount, 1)
	}
}

// ObserveUpstream records the latency of a report service call.
func (m *MetricsService) ObserveUpstream(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.upstreamDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// RecordNotification counts an emitted user notification.
func (m *MetricsService) RecordNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

// SetActivePanels reports the number of live panels.
func (m *MetricsService) SetActivePanels(n int) {
	if m == nil {
		return
	}
	m.activePanels.Set(float64(n))
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Submissions: atomic.LoadUint64(&m.submissionCount),
		Denied:      atomic.LoadUint64(&m.deniedCount),
		Goroutines:  runtime.NumGoroutine(),
		GeneratedAt: time.Now().UTC(),
	}
}
