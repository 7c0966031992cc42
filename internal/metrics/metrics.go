// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus instrumentation for pipeline runs and
// connector calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	ConnectorCalls    *prometheus.CounterVec
	ConnectorRecords  *prometheus.CounterVec
	ConnectorDuration *prometheus.HistogramVec

	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	ItemsPersisted  prometheus.Counter
	EnrichmentFails *prometheus.CounterVec
}

// New creates all collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the global registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConnectorCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncopulse_connector_calls_total",
				Help: "Connector calls by connector and outcome.",
			},
			[]string{"connector", "status"},
		),
		ConnectorRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncopulse_connector_records_total",
				Help: "Raw records returned by each connector.",
			},
			[]string{"connector"},
		),
		ConnectorDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oncopulse_connector_duration_seconds",
				Help:    "Connector call latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"connector"},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncopulse_runs_total",
				Help: "Pipeline runs by terminal status.",
			},
			[]string{"status"},
		),
		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oncopulse_run_duration_seconds",
				Help:    "Wall-clock duration of pipeline runs.",
				Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 120, 300},
			},
		),
		ItemsPersisted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "oncopulse_items_persisted_total",
				Help: "Items upserted into the store.",
			},
		),
		EnrichmentFails: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncopulse_enrichment_failures_total",
				Help: "Per-item enrichment failures by kind.",
			},
			[]string{"kind"},
		),
	}
}

// ObserveConnector records one connector call.
func (m *Metrics) ObserveConnector(name, status string, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ConnectorCalls.WithLabelValues(name, status).Inc()
	m.ConnectorRecords.WithLabelValues(name).Add(float64(records))
	m.ConnectorDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string, persisted int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.ItemsPersisted.Add(float64(persisted))
}

// EnrichmentFailed counts a failed citation, full-text or abstract lookup.
func (m *Metrics) EnrichmentFailed(kind string) {
	if m == nil {
		return
	}
	m.EnrichmentFails.WithLabelValues(kind).Inc()
}
