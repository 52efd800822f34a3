package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowTransitions counts state-machine transitions by stage and action
	// (forward, approve, reject).
	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_workflow_transitions_total",
		Help: "Total number of document workflow transitions",
	}, []string{"stage", "action"})

	// WorkflowConflicts counts transitions lost to the optimistic version check.
	WorkflowConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperflow_workflow_conflicts_total",
		Help: "Total number of workflow transitions rejected by the version check",
	})

	// SigningOutcomes counts signing-hook results: image, text_fallback,
	// passthrough or error.
	SigningOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_signing_outcomes_total",
		Help: "Total number of PDF signing attempts by outcome",
	}, []string{"outcome"})

	// DocumentUploads counts accepted student uploads.
	DocumentUploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperflow_document_uploads_total",
		Help: "Total number of accepted document uploads",
	})

	// SigningDuration records how long the signing hook takes per document.
	SigningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paperflow_signing_duration_seconds",
		Help:    "PDF signing latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveSigning records a signing outcome together with its latency.
func ObserveSigning(outcome string, start time.Time) {
	SigningOutcomes.WithLabelValues(outcome).Inc()
	SigningDuration.Observe(time.Since(start).Seconds())
}
