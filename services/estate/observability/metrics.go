// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the Prometheus metrics for the analysis
// engine. Metrics are registered once via promauto at package init and
// recorded through the small helper functions below so call sites stay
// one-liners.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "truevalue"
	subsystem = "estate"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "queries_total",
		Help:      "Analysis queries processed, by outcome (ok, iteration_ceiling, model_unavailable, error).",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "query_duration_seconds",
		Help:      "End-to-end query latency including all model and tool calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	queryIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "query_iterations",
		Help:      "Model round-trips per query.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7},
	})

	toolExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tool_executions_total",
		Help:      "Tool executions, by tool name, result source (live, mock, cache), and outcome (ok, validation_error, upstream_error).",
	}, []string{"tool", "source", "outcome"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tool_duration_seconds",
		Help:      "Tool execution latency, by tool name.",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30},
	}, []string{"tool"})

	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_ops_total",
		Help:      "Tool cache operations, by tool name and result (hit, miss, bypass, error).",
	}, []string{"tool", "result"})

	modelCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "model_calls_total",
		Help:      "Model API calls, by outcome (ok, error).",
	}, []string{"outcome"})

	modelTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "model_tokens_total",
		Help:      "Tokens consumed by model calls, by direction (input, output).",
	}, []string{"direction"})
)

// Cache result labels for RecordCacheOp.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
	CacheError  = "error"
)

// RecordQuery records one completed query.
func RecordQuery(outcome string, iterations int, elapsed time.Duration) {
	queriesTotal.WithLabelValues(outcome).Inc()
	queryDuration.Observe(elapsed.Seconds())
	queryIterations.Observe(float64(iterations))
}

// RecordToolExecution records one tool execution.
func RecordToolExecution(tool, source, outcome string, elapsed time.Duration) {
	toolExecutionsTotal.WithLabelValues(tool, source, outcome).Inc()
	toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordCacheOp records one cache lookup result for a tool.
func RecordCacheOp(tool, result string) {
	cacheOpsTotal.WithLabelValues(tool, result).Inc()
}

// RecordModelCall records one model API call and its token usage.
func RecordModelCall(outcome string, inputTokens, outputTokens int) {
	modelCallsTotal.WithLabelValues(outcome).Inc()
	if inputTokens > 0 {
		modelTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		modelTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}
