package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the remediation engine.
type Metrics struct {
	InspectionsProcessed *prometheus.CounterVec
	DeviationsFlagged    *prometheus.CounterVec
	EntriesCreated       prometheus.Counter

	EscalationItems       *prometheus.CounterVec
	EscalationRunDuration prometheus.Histogram
	EscalationRunsSkipped prometheus.Counter

	AssignmentResolutions *prometheus.CounterVec
}

// NewMetrics registers the engine metrics once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			InspectionsProcessed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "remediation_inspections_processed_total",
					Help: "Inspections run through deviation scanning and plan writing",
				},
				[]string{"outcome"},
			),
			DeviationsFlagged: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "remediation_deviations_flagged_total",
					Help: "Deviations flagged by the scanner",
				},
				[]string{"severity"},
			),
			EntriesCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "remediation_entries_created_total",
					Help: "Remediation entries written",
				},
			),
			EscalationItems: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "remediation_escalation_items_total",
					Help: "Action items handled by escalation sweeps",
				},
				[]string{"outcome"},
			),
			EscalationRunDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "remediation_escalation_run_duration_seconds",
					Help:    "Duration of escalation sweeps",
					Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
				},
			),
			EscalationRunsSkipped: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "remediation_escalation_runs_skipped_total",
					Help: "Escalation sweeps skipped because another instance held the lock",
				},
			),
			AssignmentResolutions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "remediation_assignment_resolutions_total",
					Help: "Assignment lookups by the stage that resolved them",
				},
				[]string{"stage"},
			),
		}
	})
	return globalMetrics
}

// RecordInspection records one processed inspection.
func (m *Metrics) RecordInspection(outcome string, entriesCreated int) {
	m.InspectionsProcessed.WithLabelValues(outcome).Inc()
	if entriesCreated > 0 {
		m.EntriesCreated.Add(float64(entriesCreated))
	}
}

// RecordDeviation records a flagged deviation.
func (m *Metrics) RecordDeviation(severity string) {
	m.DeviationsFlagged.WithLabelValues(severity).Inc()
}

// RecordEscalationRun records a finished sweep.
func (m *Metrics) RecordEscalationRun(d time.Duration, escalated, skipped, errors int) {
	m.EscalationRunDuration.Observe(d.Seconds())
	m.EscalationItems.WithLabelValues("escalated").Add(float64(escalated))
	m.EscalationItems.WithLabelValues("skipped").Add(float64(skipped))
	m.EscalationItems.WithLabelValues("error").Add(float64(errors))
}

// RecordEscalationLocked records a sweep skipped for lock contention.
func (m *Metrics) RecordEscalationLocked() {
	m.EscalationRunsSkipped.Inc()
}

// RecordAssignment records which stage resolved a lookup; "" means none.
func (m *Metrics) RecordAssignment(stage string) {
	if stage == "" {
		stage = "none"
	}
	m.AssignmentResolutions.WithLabelValues(stage).Inc()
}
