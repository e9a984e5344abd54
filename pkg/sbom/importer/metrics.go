// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "sbomgraph"
	metricsSubsystem = "importer"
)

// Metrics are the Prometheus collectors of importer runs. A nil *Metrics
// records nothing.
type Metrics struct {
	Documents   *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
}

// NewMetrics creates the importer collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "documents_total",
				Help:      "Documents handled by importer and outcome",
			},
			[]string{"importer", "outcome"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "fetch_retries_total",
				Help:      "Retries of transient fetch failures by importer",
			},
			[]string{"importer"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "runs_total",
				Help:      "Completed runs by importer and final state",
			},
			[]string{"importer", "state"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of importer runs in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"importer"},
		),
	}
	reg.MustRegister(m.Documents, m.Retries, m.Runs, m.RunDuration)
	return m
}

func (m *Metrics) document(importer string, outcome Outcome) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(importer, string(outcome)).Inc()
}

func (m *Metrics) retry(importer string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(importer).Inc()
}

func (m *Metrics) observeRun(importer string, rep *Report) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(importer, rep.Outcome.String()).Inc()
	m.RunDuration.WithLabelValues(importer).Observe(rep.Duration.Seconds())
}
