// Package metrics defines the Prometheus collectors for the data logger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the service collectors.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	RowsWritten      prometheus.Counter
	VersionConflicts prometheus.Counter
	SubmitDuration   prometheus.Histogram
}

// New registers the collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datalogger_submissions_total",
			Help: "Submissions processed, labeled by outcome (ok, rejected, error).",
		}, []string{"outcome"}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datalogger_rows_written_total",
			Help: "Log rows appended across all submissions.",
		}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datalogger_version_conflicts_total",
			Help: "Optimistic-concurrency conflicts encountered while saving logs.",
		}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "datalogger_submit_duration_seconds",
			Help:    "End-to-end submission handling duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Submissions, m.RowsWritten, m.VersionConflicts, m.SubmitDuration)
	return m
}
