package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	AssessmentsTotal     *prometheus.CounterVec
	PipelineStageSeconds *prometheus.HistogramVec
	AdapterFailures      *prometheus.CounterVec

	RetrievalQuerySeconds prometheus.Histogram
	RetrievalChunksHit    prometheus.Histogram

	TransitionsTotal    *prometheus.CounterVec
	TransitionConflicts prometheus.Counter

	TransitionLogEntries prometheus.Counter
	TransitionLogDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "assessments_total",
			Help:      "Total finalized assessments by confidence label.",
		}, []string{"confidence"}),

		PipelineStageSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Assessment pipeline stage latency by stage and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		}, []string{"stage", "outcome"}),

		AdapterFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pipeline",
			Name:      "adapter_failures_total",
			Help:      "Model adapter failures by adapter and error kind.",
		}, []string{"adapter", "kind"}),

		RetrievalQuerySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "Evidence retrieval query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),

		RetrievalChunksHit: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "retrieval",
			Name:      "chunks_returned",
			Help:      "Number of evidence chunks returned per query.",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 12},
		}),

		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Accepted request transitions by from/to state.",
		}, []string{"from", "to"}),

		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "transition_conflicts_total",
			Help:      "Transitions rejected because a concurrent commit won the race.",
		}),

		TransitionLogEntries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total transition log entries written.",
		}),

		TransitionLogDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Transition log entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
