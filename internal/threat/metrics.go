// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package threat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praetor_threat_signals_total",
		Help: "Total threat signals raised, by signal type",
	}, []string{"type"})

	autoBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "praetor_threat_auto_blocks_total",
		Help: "Total IPs auto-blocked by the threat tracker",
	})
)

// RecordSignal increments the signal counter for a signal type.
func RecordSignal(signalType string) {
	signalsTotal.WithLabelValues(signalType).Inc()
}

// RecordAutoBlock increments the auto-block counter.
func RecordAutoBlock() {
	autoBlocksTotal.Inc()
}
