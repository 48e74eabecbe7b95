package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	scorerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kbli_scorer_latency_ms",
		Help:    "Latency of scorer calls in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400, 800, 1500, 3000},
	}, []string{"type"})

	scorerResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kbli_scorer_results",
		Help:    "Number of candidates returned by a scorer",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{"type"})

	fusionLists = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kbli_fusion_input_lists",
		Help:    "Number of ranked lists fused per intent",
		Buckets: []float64{0, 1, 2, 3, 4},
	})

	adjudication = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kbli_adjudication_total",
		Help: "Adjudication outcomes (ok/fallback/no_candidates/contract_violation)",
	}, []string{"outcome"})

	batchRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kbli_batch_rows_total",
		Help: "Batch rows by final status",
	}, []string{"status"})

	degradedQueries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kbli_degraded_queries_total",
		Help: "Queries answered in a degraded mode (lexical-only or fallback classification)",
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(scorerLatency, scorerResults, fusionLists, adjudication, batchRows, degradedQueries)
	})
}

// ObserveScorer records latency and result size for a scorer type.
func ObserveScorer(typ string, start time.Time, results int) {
	ensureRegistered()
	scorerLatency.WithLabelValues(typ).Observe(float64(time.Since(start).Milliseconds()))
	scorerResults.WithLabelValues(typ).Observe(float64(results))
}

// ObserveFusion records how many lists were fused for one intent.
func ObserveFusion(n int) {
	ensureRegistered()
	fusionLists.Observe(float64(n))
}

// IncAdjudication increments the adjudication outcome counter.
func IncAdjudication(outcome string) {
	ensureRegistered()
	adjudication.WithLabelValues(outcome).Inc()
}

// IncBatchRow records a finished batch row by status.
func IncBatchRow(status string) {
	ensureRegistered()
	batchRows.WithLabelValues(status).Inc()
}

// IncDegraded records a query answered without the full pipeline.
func IncDegraded() {
	ensureRegistered()
	degradedQueries.Inc()
}

// Collectors exposes all collectors for registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		scorerLatency, scorerResults, fusionLists, adjudication, batchRows, degradedQueries,
	}
}
