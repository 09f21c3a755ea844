// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package middleware holds the generic HTTP middleware shared by the
// router: request identifiers and Prometheus request metrics. The
// authorization pipeline itself lives in internal/pipeline.
package middleware

import (
	"net/http"

	"github.com/praetor-sec/praetor/internal/logging"
)

// RequestID assigns a request identifier, propagates it through the
// request context and echoes it in the X-Request-ID response header. An
// identifier supplied by the client is preserved for cross-service
// correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}
