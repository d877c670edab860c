// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates Prometheus instrumentation. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	tasksTotal       *prometheus.CounterVec
	filesTotal       *prometheus.CounterVec
	recordsTotal     *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	generateErrors   *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec
	tasksInFlight    prometheus.Gauge
}

// New registers the collectors. depth may be nil.
func New(depth func() float64) *Metrics {
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

	tasksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_tasks_total",
		Help: "Tasks by terminal status",
	}, []string{"status"})

	filesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_files_total",
		Help: "Files by terminal status",
	}, []string{"status"})

	recordsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_records_total",
		Help: "Extracted records kept or dropped by validation",
	}, []string{"outcome"})

	generateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generate_duration_seconds",
		Help:    "Duration of generation calls",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
	}, []string{"provider"})

	generateErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_generate_errors_total",
		Help: "Generation calls that returned an error",
	}, []string{"provider"})

	retriesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_retries_total",
		Help: "Generation attempts that will be retried",
	}, []string{"provider", "reason"})

	tasksInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "course_tasks_in_flight",
		Help: "Tasks currently processing",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, tasksTotal, filesTotal, recordsTotal,
		generateDuration, generateErrors, retriesTotal, tasksInFlight, goroutines)

	if depth != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Jobs waiting for a worker",
		}, depth))
	}

	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		tasksTotal:       tasksTotal,
		filesTotal:       filesTotal,
		recordsTotal:     recordsTotal,
		generateDuration: generateDuration,
		generateErrors:   generateErrors,
		retriesTotal:     retriesTotal,
		tasksInFlight:    tasksInFlight,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksInFlight.Inc()
}

func (m *Metrics) TaskFinished(status string) {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
	m.tasksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) FileFinished(status string, kept, dropped int) {
	if m == nil {
		return
	}
	m.filesTotal.WithLabelValues(status).Inc()
	m.recordsTotal.WithLabelValues("kept").Add(float64(kept))
	m.recordsTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// ObserveGenerate, ObserveRetry and ObserveDropped satisfy llm.Observer.
func (m *Metrics) ObserveGenerate(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.generateDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		m.generateErrors.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) ObserveRetry(provider, reason string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(provider, reason).Inc()
}

// ObserveDropped is a no-op; FileFinished already counts dropped records per file.
func (m *Metrics) ObserveDropped(int) {}
