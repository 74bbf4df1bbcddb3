// Package metrics provides Prometheus metrics for the reconciler service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal tracks listing resolutions by source, method, and outcome
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Subsystem: "matching",
			Name:      "resolutions_total",
			Help:      "Total number of listing resolutions by source, method, and outcome",
		},
		[]string{"source", "method", "outcome"},
	)

	// ResolutionScore tracks the score distribution of resolutions
	ResolutionScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reconciler",
			Subsystem: "matching",
			Name:      "resolution_score",
			Help:      "Score distribution of listing resolutions",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"source"},
	)

	// ResolutionDuration tracks end-to-end resolution duration in seconds
	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reconciler",
			Subsystem: "matching",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of listing resolutions in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"source"},
	)

	// ReviewDecisionsTotal tracks review decisions by status
	ReviewDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Subsystem: "review",
			Name:      "decisions_total",
			Help:      "Total number of review decisions by status",
		},
		[]string{"status"},
	)

	// ProbeRequestsTotal tracks outbound probe requests by platform and result
	ProbeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Subsystem: "probe",
			Name:      "requests_total",
			Help:      "Total number of outbound probe requests by platform and result",
		},
		[]string{"platform", "result"},
	)

	// ProbeRequestDuration tracks outbound probe request duration
	ProbeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reconciler",
			Subsystem: "probe",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound probe requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"platform"},
	)

	// ProbeCacheHits tracks probe cache lookups by result
	ProbeCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Subsystem: "probe",
			Name:      "cache_lookups_total",
			Help:      "Total number of probe cache lookups by result",
		},
		[]string{"result"},
	)

	// KafkaMessagesConsumed tracks listings consumed from Kafka
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka by status",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks outcome events published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordResolution records a listing resolution metric
func RecordResolution(source, method, outcome string, score, durationSeconds float64) {
	ResolutionsTotal.WithLabelValues(source, method, outcome).Inc()
	ResolutionScore.WithLabelValues(source).Observe(score)
	ResolutionDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordReviewDecision records a review decision metric
func RecordReviewDecision(status string) {
	ReviewDecisionsTotal.WithLabelValues(status).Inc()
}

// RecordProbeRequest records an outbound probe request metric
func RecordProbeRequest(platform, result string, durationSeconds float64) {
	ProbeRequestsTotal.WithLabelValues(platform, result).Inc()
	ProbeRequestDuration.WithLabelValues(platform).Observe(durationSeconds)
}
