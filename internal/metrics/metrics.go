// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics declares the Prometheus instruments for the evidence pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiteratureRequests counts literature API calls by operation and outcome
	// ("ok", "error", "rate_limited", "breaker_open").
	LiteratureRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_literature_requests_total",
			Help: "Literature API requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	LiteratureLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evidence_literature_request_duration_seconds",
			Help:    "Literature API request latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// StrategyOutcomes counts search strategy runs by strategy and outcome.
	StrategyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_strategy_runs_total",
			Help: "Search strategy runs by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// Classifications counts per-study classifications by outcome
	// ("classified", "failed", "skipped").
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_classifications_total",
			Help: "Sentiment classifications by outcome",
		},
		[]string{"outcome"},
	)

	// CacheLookups counts result cache lookups by result ("hit", "miss", "error").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_cache_lookups_total",
			Help: "Result cache lookups by result",
		},
		[]string{"result"},
	)

	CacheWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evidence_cache_write_errors_total",
			Help: "Failed background result cache writes",
		},
	)

	// PipelineDuration observes end-to-end rank latency by status.
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evidence_pipeline_duration_seconds",
			Help:    "End-to-end rank pipeline duration",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"status"},
	)

	// CircuitBreakerState reports breaker state by name (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evidence_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)
