// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Package metrics provides Prometheus instrumentation for Sentinel:
// risk evaluation throughput and latency, per-rule findings and
// unavailability, degraded verdicts, API traffic, and circuit breaker state
// for external signal providers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Risk engine metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_evaluations_total",
			Help: "Total number of risk evaluations by verdict status",
		},
		[]string{"status"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_evaluation_duration_seconds",
			Help:    "Risk evaluation duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	RuleFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_rule_findings_total",
			Help: "Total number of findings produced per detection rule",
		},
		[]string{"rule"},
	)

	RuleUnavailable = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_rule_unavailable_total",
			Help: "Total number of rule evaluations degraded by provider failure or timeout",
		},
		[]string{"rule"},
	)

	DegradedEvaluations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_degraded_evaluations_total",
			Help: "Total number of verdicts flagged as degraded",
		},
	)

	InvalidContexts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_invalid_contexts_total",
			Help: "Total number of submissions rejected during normalization",
		},
	)

	// Audit trail metrics
	AuditEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_audit_events_published_total",
			Help: "Total number of verdict audit events published",
		},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_audit_events_dropped_total",
			Help: "Total number of verdict audit events dropped on publish failure",
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit breaker metrics for external signal providers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordEvaluation records a completed risk evaluation.
func RecordEvaluation(status string, duration time.Duration) {
	EvaluationsTotal.WithLabelValues(status).Inc()
	EvaluationDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
