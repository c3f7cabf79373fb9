// Package http provides HTTP server functionality for the fuel price ingester.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ingester.
type Metrics struct {
	// Step metrics
	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec

	// Run metrics
	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	LastSuccessTimestamp prometheus.Gauge
	LastPayloadSizeBytes prometheus.Gauge
}

// NewMetrics creates Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelingest_steps_total",
				Help: "Total number of pipeline steps by step and status",
			},
			[]string{"step", "status"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelingest_step_duration_seconds",
				Help:    "Pipeline step duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelingest_runs_total",
				Help: "Total number of pipeline runs by status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fuelingest_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		LastSuccessTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelingest_last_success_timestamp",
				Help: "Timestamp of the last successful run",
			},
		),
		LastPayloadSizeBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelingest_last_payload_size_bytes",
				Help: "Size of the last stored price payload in bytes",
			},
		),
	}
}

// RecordStep records a pipeline step metric.
func (m *Metrics) RecordStep(step, status string, duration float64) {
	m.StepsTotal.WithLabelValues(step, status).Inc()
	m.StepDuration.WithLabelValues(step).Observe(duration)
}

// RecordRun records a pipeline run metric.
func (m *Metrics) RecordRun(status string, duration float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration)
}

// RecordLastSuccess records the last successful run timestamp.
func (m *Metrics) RecordLastSuccess(timestamp float64) {
	m.LastSuccessTimestamp.Set(timestamp)
}

// RecordPayloadSize records the size of the last stored payload.
func (m *Metrics) RecordPayloadSize(bytes float64) {
	m.LastPayloadSizeBytes.Set(bytes)
}
