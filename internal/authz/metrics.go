// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package authz

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// decisionsTotal counts decisions by role, resource, action, and outcome.
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "praetor_authz_decisions_total",
			Help: "Total number of permission decisions",
		},
		[]string{"role", "resource", "action", "decision"},
	)

	// decisionDuration tracks decision latency.
	decisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "praetor_authz_decision_duration_seconds",
			Help: "Duration of permission decisions in seconds",
			// Decisions are in-memory lookups; buckets span microseconds to
			// low milliseconds.
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"role", "cache_hit"},
	)

	// deniedTotal specifically tracks denials for alerting.
	deniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "praetor_authz_denied_total",
			Help: "Total number of permission denials",
		},
		[]string{"role", "resource", "action"},
	)

	// evalErrorsTotal counts enforcer evaluation errors.
	evalErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "praetor_authz_eval_errors_total",
			Help: "Total number of permission evaluation errors",
		},
	)
)

// RecordDecision records a permission decision with its latency.
func RecordDecision(role, resource, action string, allowed bool, duration time.Duration, cacheHit bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}

	decisionsTotal.WithLabelValues(role, resource, action, decision).Inc()
	decisionDuration.WithLabelValues(role, strconv.FormatBool(cacheHit)).Observe(duration.Seconds())

	if !allowed {
		deniedTotal.WithLabelValues(role, resource, action).Inc()
	}
}

// RecordEvalError records an enforcer evaluation error.
func RecordEvalError() {
	evalErrorsTotal.Inc()
}
