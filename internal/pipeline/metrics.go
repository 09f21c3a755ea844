// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praetor_pipeline_decisions_total",
		Help: "Total pipeline decisions, by result",
	}, []string{"result"})

	decisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "praetor_pipeline_decision_duration_seconds",
		Help:    "Time spent evaluating the authorization pipeline",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	})
)

// RecordDecision records one pipeline decision and its latency.
func RecordDecision(result string, elapsed time.Duration) {
	decisionsTotal.WithLabelValues(result).Inc()
	decisionDuration.Observe(elapsed.Seconds())
}
