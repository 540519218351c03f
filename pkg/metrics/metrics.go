package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. Registered on the default registry and exposed via
// promhttp on /metrics.
var (
	ValidationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emedosmotr_validation_runs_total",
		Help: "Completed conclusion validations by overall status.",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emedosmotr_stage_duration_seconds",
		Help:    "Duration of individual validation stages.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"stage"})

	ContradictionsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emedosmotr_contradictions_total",
		Help: "Contradictions detected, by type.",
	}, []string{"type"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emedosmotr_llm_requests_total",
		Help: "GigaChat requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	EmbeddingCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emedosmotr_embedding_cache_total",
		Help: "Embedding cache lookups by result (hit or miss).",
	}, []string{"result"})
)
