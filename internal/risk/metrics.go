package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_assessments_total",
			Help: "Completed fraud risk assessments by resulting level.",
		},
		[]string{"level"},
	)

	analyzerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_analyzer_failures_total",
			Help: "Analyzer runs aborted by an unavailable collaborator.",
		},
		[]string{"analyzer"},
	)

	assessmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraud_assessment_duration_seconds",
			Help:    "End-to-end fraud assessment latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
