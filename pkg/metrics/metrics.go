// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	EventsRecordedTotal  *prometheus.CounterVec
	EventsEvictedTotal   prometheus.Counter
	EventsPublishErrors  prometheus.Counter
	WindowSize           prometheus.Gauge
	ReportAssemblyTime   prometheus.Histogram
	ReportSectionErrors  *prometheus.CounterVec
	ProbeDuration        *prometheus.HistogramVec
	UpstreamFailures     *prometheus.CounterVec
	IngestWritesTotal    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		EventsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_events_recorded_total",
				Help: "Search events recorded into the metric window by outcome.",
			},
			[]string{"outcome"},
		),
		EventsEvictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_events_evicted_total",
				Help: "Events evicted from the bounded metric window.",
			},
		),
		EventsPublishErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_events_publish_errors_total",
				Help: "Failures publishing events to the durable pipeline.",
			},
		),
		WindowSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "metric_window_size",
				Help: "Current number of events retained in the metric window.",
			},
		),
		ReportAssemblyTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "report_assembly_duration_seconds",
				Help:    "Wall time to assemble the admin analytics report.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		ReportSectionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_section_errors_total",
				Help: "Report sections replaced by failure markers, by section.",
			},
			[]string{"section"},
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "health_probe_duration_seconds",
				Help:    "Latency of individual search-backend health probes.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
			},
			[]string{"probe"},
		),
		UpstreamFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_failures_total",
				Help: "Failed calls to upstream dependencies by target.",
			},
			[]string{"target"},
		),
		IngestWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_writes_total",
				Help: "Durable event writes by status (ok, error, skipped).",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.EventsRecordedTotal,
		m.EventsEvictedTotal,
		m.EventsPublishErrors,
		m.WindowSize,
		m.ReportAssemblyTime,
		m.ReportSectionErrors,
		m.ProbeDuration,
		m.UpstreamFailures,
		m.IngestWritesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
