// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package pipeline

import (
	"net/http"
	"strconv"

	"github.com/praetor-sec/praetor/internal/ratelimit"
)

// defaultCSP is the content security policy attached to every
// non-bypassed response. Deployments with inline scripts or external
// asset hosts override it through Config.ContentSecurityPolicy.
const defaultCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob:; font-src 'self'; connect-src 'self'; " +
	"frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

const hstsValue = "max-age=31536000; includeSubDomains"

// applySecurityHeaders sets the fixed security header set on a response.
// HSTS is attached only in production so local HTTP development is not
// poisoned by a cached policy.
func applySecurityHeaders(h http.Header, csp string, production bool) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Content-Security-Policy", csp)
	if production {
		h.Set("Strict-Transport-Security", hstsValue)
	}
}

// applyRateLimitHeaders sets the X-RateLimit-* headers from a limiter
// result. Retry-After and the violations header appear only on failure.
func applyRateLimitHeaders(h http.Header, rl *ratelimit.Result) {
	if rl == nil {
		return
	}

	h.Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(rl.Reset.Unix(), 10))

	if !rl.Success && rl.RetryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(rl.RetryAfter))
	}
	if rl.Violations > 0 {
		h.Set("X-RateLimit-Violations", strconv.Itoa(rl.Violations))
	}
}
