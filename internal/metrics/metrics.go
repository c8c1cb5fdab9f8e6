// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestsTotal counts upload attempts by outcome
	// (accepted, duplicate, rejected, backpressure, error).
	IngestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_ingests_total",
		Help: "Upload attempts by outcome.",
	}, []string{"outcome"})

	// ExtractionsTotal counts extraction attempts by processor and outcome.
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_extractions_total",
		Help: "Extraction attempts by processor and outcome.",
	}, []string{"processor", "outcome"})

	// ExtractionDuration observes end-to-end extraction time.
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paperflow_extraction_duration_seconds",
		Help:    "Extraction duration per processor.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"processor"})

	// ExtractionConfidence observes the heuristic confidence scores.
	ExtractionConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paperflow_extraction_confidence",
		Help:    "Confidence score distribution for successful extractions.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
