// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package pipeline

import (
	"github.com/praetor-sec/praetor/internal/models"
	"github.com/praetor-sec/praetor/internal/ratelimit"
)

// DecisionKind is the closed set of terminal pipeline outcomes.
type DecisionKind int

const (
	// DecisionAllow passes the request to the downstream handler.
	DecisionAllow DecisionKind = iota

	// DecisionRedirect sends a 307 to Location (web routes).
	DecisionRedirect

	// DecisionJSONError writes a structured error envelope (API routes).
	DecisionJSONError
)

// Decision is the pipeline's terminal outcome for one request.
//
// Kind selects which fields are meaningful: Location for redirects,
// Status/Code/Message for JSON errors. Reason and Result feed the
// security event regardless of kind. RateLimit, when non-nil, populates
// the X-RateLimit-* response headers.
type Decision struct {
	Kind DecisionKind

	// Result classifies the outcome for telemetry.
	Result models.SecurityResult

	// Reason is the machine-readable reason string for the event and,
	// for errors, the envelope details.
	Reason string

	// Bypass marks static-asset passthroughs: no headers, no event.
	Bypass bool

	// Token is the authenticated caller, nil before the Authenticate
	// state or for anonymous outcomes.
	Token *models.AuthToken

	// RateLimit is the limiter result for this request, when one ran.
	RateLimit *ratelimit.Result

	// Location is the redirect target for DecisionRedirect.
	Location string

	// Status, Code and Message describe the JSON error envelope for
	// DecisionJSONError.
	Status  int
	Code    string
	Message string

	// Escalation flags a FORBIDDEN outcome against the admin namespace
	// by a non-admin caller.
	Escalation bool
}

func allowDecision(reason string, token *models.AuthToken, rl *ratelimit.Result) Decision {
	return Decision{
		Kind:      DecisionAllow,
		Result:    models.ResultSuccess,
		Reason:    reason,
		Token:     token,
		RateLimit: rl,
	}
}

func bypassDecision() Decision {
	return Decision{Kind: DecisionAllow, Result: models.ResultSuccess, Bypass: true}
}
