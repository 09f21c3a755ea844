// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// checksTotal counts limiter checks by outcome (allowed, limited, blocked).
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "praetor_ratelimit_checks_total",
			Help: "Total number of rate limit checks by outcome",
		},
		[]string{"outcome"},
	)

	// autoBlocksTotal counts keys auto-blocked after repeated violations.
	autoBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "praetor_ratelimit_auto_blocks_total",
			Help: "Total number of keys auto-blocked for repeated violations",
		},
	)
)

// RecordCheck records a limiter check outcome.
func RecordCheck(outcome string) {
	checksTotal.WithLabelValues(outcome).Inc()
}

// RecordAutoBlock records a key crossing the auto-block threshold.
func RecordAutoBlock() {
	autoBlocksTotal.Inc()
}
