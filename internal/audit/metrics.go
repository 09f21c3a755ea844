// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "praetor_audit_events_queued_total",
		Help: "Total security events accepted onto the audit queue",
	})

	eventsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praetor_audit_events_written_total",
		Help: "Total security events written, by result",
	}, []string{"result"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "praetor_audit_events_dropped_total",
		Help: "Total security events dropped due to a full queue",
	})
)

// RecordQueued increments the queued-event counter.
func RecordQueued() {
	eventsQueued.Inc()
}

// RecordWritten increments the written-event counter for a result.
func RecordWritten(result string) {
	eventsWritten.WithLabelValues(result).Inc()
}

// RecordDropped increments the dropped-event counter.
func RecordDropped() {
	eventsDropped.Inc()
}
