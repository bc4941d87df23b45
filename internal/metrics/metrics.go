// Package metrics exposes Prometheus collectors for the evaluation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "criteria_engine"

var (
	// evaluationsTotal counts evaluations by origin (http, mcp, cli, job) and outcome.
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evaluation",
		Name:      "total",
		Help:      "Total case evaluations",
	}, []string{"origin", "outcome"})

	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "evaluation",
		Name:      "duration_seconds",
		Help:      "Case evaluation latency in seconds, including review store lookups",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"origin"})

	evaluationEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "evaluation",
		Name:      "entries",
		Help:      "Number of journal entries per evaluation",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	potentialRemissionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evaluation",
		Name:      "potential_remission_total",
		Help:      "Evaluations that flagged potential remission",
	})

	computedEvidenceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evidence",
		Name:      "computed_total",
		Help:      "Computed duration evidence units appended, by label",
	}, []string{"label"})

	// summaryJobsTotal counts summary job transitions by final status.
	summaryJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "transitions_total",
		Help:      "Summary job status transitions",
	}, []string{"status"})

	reviewStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "review_store",
		Name:      "errors_total",
		Help:      "Review store failures by operation",
	}, []string{"operation"})
)

// RecordEvaluation records one evaluation.
func RecordEvaluation(origin string, entries int, duration time.Duration, remission bool, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	evaluationsTotal.WithLabelValues(origin, outcome).Inc()
	evaluationDuration.WithLabelValues(origin).Observe(duration.Seconds())
	if err != nil {
		return
	}
	evaluationEntries.Observe(float64(entries))
	if remission {
		potentialRemissionTotal.Inc()
	}
}

// RecordComputedEvidence records a synthesized duration unit.
func RecordComputedEvidence(label string) {
	computedEvidenceTotal.WithLabelValues(label).Inc()
}

// RecordJobTransition records a summary job entering status.
func RecordJobTransition(status string) {
	summaryJobsTotal.WithLabelValues(status).Inc()
}

// RecordStoreError records a failed review store operation.
func RecordStoreError(operation string) {
	reviewStoreErrors.WithLabelValues(operation).Inc()
}
