// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package pipeline is the request authorization state machine. Each
// inbound request walks a fixed sequence of states, any of which may
// short-circuit to a terminal decision:
//
//	StaticBypass -> IPBlockCheck -> RateLimit -> PublicBypass ->
//	Authenticate -> AuthOnlyBypass -> ResolvePermissions -> Authorize
//
// Every non-bypassed outcome attaches the security header set, the
// rate-limit headers and the request identifier, and emits exactly one
// security event to the audit sink and the threat tracker.
//
// All collaborators are constructor-injected so tests run the machine
// against isolated state.
package pipeline

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/praetor-sec/praetor/internal/audit"
	"github.com/praetor-sec/praetor/internal/auth"
	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
	"github.com/praetor-sec/praetor/internal/ratelimit"
	"github.com/praetor-sec/praetor/internal/routes"
	"github.com/praetor-sec/praetor/internal/threat"
)

// PermissionEvaluator decides whether a role satisfies any of the
// required permissions.
type PermissionEvaluator interface {
	HasPermission(role string, required []models.Permission) bool
}

// PreferencesApplier decorates allowed web responses with user
// preferences (theme cookies, locale headers). Applied only to non-API
// paths.
type PreferencesApplier interface {
	Apply(w http.ResponseWriter, r *http.Request)
}

// TierConfig holds the limiter budgets selected by path sensitivity.
// Auth endpoints get the tightest budget, admin endpoints sit in the
// middle, everything else uses the default.
type TierConfig struct {
	Auth      ratelimit.Config
	Sensitive ratelimit.Config
	Default   ratelimit.Config
}

// DefaultTiers returns the built-in limiter budgets.
func DefaultTiers() TierConfig {
	return TierConfig{
		Auth:      ratelimit.Config{Limit: 10, Window: 15 * time.Minute},
		Sensitive: ratelimit.Config{Limit: 50, Window: 15 * time.Minute},
		Default:   ratelimit.Config{Limit: 100, Window: 15 * time.Minute},
	}
}

// Config holds the pipeline settings.
type Config struct {
	// Production enables HSTS.
	Production bool

	// ContentSecurityPolicy overrides the built-in CSP when non-empty.
	ContentSecurityPolicy string

	// APIPrefix separates JSON error responses from web redirects.
	APIPrefix string

	// AuthProviderPrefix is the identity provider's callback namespace,
	// always bypassed so login flows cannot deadlock on authorization.
	AuthProviderPrefix string

	// LoginPath is the web login page used for unauthorized redirects.
	LoginPath string

	// AdminRole is the top role; FORBIDDEN outcomes in the admin
	// namespace by any other role are flagged as escalation attempts.
	AdminRole string

	// AdminPathPrefixes are the namespaces treated as sensitive.
	AdminPathPrefixes []string

	// AuthPathPrefixes select the strictest limiter tier.
	AuthPathPrefixes []string

	// StaticPrefixes are passed through without any checks.
	StaticPrefixes []string

	// Tiers are the limiter budgets per sensitivity class.
	Tiers TierConfig
}

// DefaultConfig returns pipeline defaults for a typical content platform.
func DefaultConfig() Config {
	return Config{
		APIPrefix:          "/api/",
		AuthProviderPrefix: "/api/auth/",
		LoginPath:          "/auth/login",
		AdminRole:          "ADMIN",
		AdminPathPrefixes:  []string{"/admin", "/api/admin"},
		AuthPathPrefixes:   []string{"/auth", "/api/auth"},
		StaticPrefixes:     []string{"/_next/", "/static/", "/assets/", "/favicon.ico"},
		Tiers:              DefaultTiers(),
	}
}

// Deps are the injected collaborators.
type Deps struct {
	Routes    *routes.Table
	Evaluator PermissionEvaluator
	Limiter   *ratelimit.Limiter
	Tokens    auth.TokenProvider
	Sink      audit.Sink

	// Tracker is optional; nil disables threat detection.
	Tracker *threat.Tracker

	// Preferences is optional; nil skips preference decoration.
	Preferences PreferencesApplier
}

// Pipeline evaluates authorization for every inbound request.
type Pipeline struct {
	config  Config
	csp     string
	routes  *routes.Table
	eval    PermissionEvaluator
	limiter *ratelimit.Limiter
	tokens  auth.TokenProvider
	sink    audit.Sink
	tracker *threat.Tracker
	prefs   PreferencesApplier
}

// New creates a pipeline. Routes, Evaluator, Limiter, Tokens and Sink
// are required.
func New(config Config, deps Deps) (*Pipeline, error) {
	if deps.Routes == nil || deps.Evaluator == nil || deps.Limiter == nil ||
		deps.Tokens == nil || deps.Sink == nil {
		return nil, fmt.Errorf("pipeline: routes, evaluator, limiter, tokens and sink are required")
	}

	defaults := DefaultConfig()
	if config.APIPrefix == "" {
		config.APIPrefix = defaults.APIPrefix
	}
	if config.AuthProviderPrefix == "" {
		config.AuthProviderPrefix = defaults.AuthProviderPrefix
	}
	if config.LoginPath == "" {
		config.LoginPath = defaults.LoginPath
	}
	if config.AdminRole == "" {
		config.AdminRole = defaults.AdminRole
	}
	if len(config.AdminPathPrefixes) == 0 {
		config.AdminPathPrefixes = defaults.AdminPathPrefixes
	}
	if len(config.AuthPathPrefixes) == 0 {
		config.AuthPathPrefixes = defaults.AuthPathPrefixes
	}
	if len(config.StaticPrefixes) == 0 {
		config.StaticPrefixes = defaults.StaticPrefixes
	}
	if config.Tiers.Default.Limit == 0 {
		config.Tiers = defaults.Tiers
	}

	csp := config.ContentSecurityPolicy
	if csp == "" {
		csp = defaultCSP
	}

	return &Pipeline{
		config:  config,
		csp:     csp,
		routes:  deps.Routes,
		eval:    deps.Evaluator,
		limiter: deps.Limiter,
		tokens:  deps.Tokens,
		sink:    deps.Sink,
		tracker: deps.Tracker,
		prefs:   deps.Preferences,
	}, nil
}

// Evaluate walks the state machine for one request and returns the
// terminal decision. It performs no response writing; Middleware renders
// the decision.
func (p *Pipeline) Evaluate(r *http.Request) Decision {
	path := routes.NormalizePath(r.URL.Path)
	ip := clientIP(r)

	// StaticBypass
	if p.isStaticAsset(path) {
		return bypassDecision()
	}

	// IPBlockCheck
	if p.limiter.IsBlocked(ip) {
		return Decision{
			Kind:    DecisionJSONError,
			Result:  models.ResultBlocked,
			Reason:  "ip_blocked",
			Status:  http.StatusForbidden,
			Code:    models.CodeBlocked,
			Message: "Access denied",
		}
	}

	// RateLimit
	tier, tierCfg := p.selectTier(path, r.Method)
	rl := p.limiter.Check(tier+":"+ip, tierCfg)
	if !rl.Success {
		if rl.Violations >= ratelimit.BlockedViolations {
			return Decision{
				Kind:      DecisionJSONError,
				Result:    models.ResultBlocked,
				Reason:    "rate_limit_blocked",
				RateLimit: &rl,
				Status:    http.StatusForbidden,
				Code:      models.CodeBlocked,
				Message:   "Access denied",
			}
		}
		return Decision{
			Kind:      DecisionJSONError,
			Result:    models.ResultRateLimited,
			Reason:    "rate_limit_exceeded",
			RateLimit: &rl,
			Status:    http.StatusTooManyRequests,
			Code:      models.CodeRateLimited,
			Message:   "Too many requests",
		}
	}

	// PublicBypass
	if p.isAuthProviderPath(path) {
		return allowDecision("auth_provider_route", nil, &rl)
	}
	if p.routes.IsPublicRoute(path) {
		return allowDecision("public_route", nil, &rl)
	}

	// Authenticate
	token, err := p.tokens.GetToken(r.Context(), r)
	if err != nil {
		return p.unauthorized(r, path, &rl, authFailureReason(err))
	}

	// AuthOnlyBypass
	if p.routes.RequiresAuthOnly(path) {
		return allowDecision("authenticated_route", token, &rl)
	}

	// ResolvePermissions
	required := p.routes.GetRoutePermissions(path, r.Method)
	if len(required) == 0 {
		return allowDecision("no_permissions_required", token, &rl)
	}

	// Authorize
	if !p.eval.HasPermission(token.Role, required) {
		return p.forbidden(r, path, token, &rl, required)
	}

	return allowDecision("permission_granted", token, &rl)
}

// unauthorized builds the terminal decision for a missing or invalid
// token: JSON 401 for API paths, a login redirect for web paths.
func (p *Pipeline) unauthorized(r *http.Request, path string, rl *ratelimit.Result, reason string) Decision {
	if p.isAPIPath(path) {
		return Decision{
			Kind:      DecisionJSONError,
			Result:    models.ResultUnauthorized,
			Reason:    reason,
			RateLimit: rl,
			Status:    http.StatusUnauthorized,
			Code:      models.CodeUnauthorized,
			Message:   "Authentication required",
		}
	}

	query := url.Values{}
	query.Set("callbackUrl", r.URL.RequestURI())
	query.Set("error", "unauthorized")
	query.Set("reason", reason)

	return Decision{
		Kind:      DecisionRedirect,
		Result:    models.ResultUnauthorized,
		Reason:    reason,
		RateLimit: rl,
		Location:  p.config.LoginPath + "?" + query.Encode(),
	}
}

// forbidden builds the terminal decision for an authenticated caller
// with insufficient permissions.
func (p *Pipeline) forbidden(r *http.Request, path string, token *models.AuthToken, rl *ratelimit.Result, required []models.Permission) Decision {
	names := make([]string, len(required))
	for i, perm := range required {
		names[i] = perm.String()
	}
	reason := fmt.Sprintf("insufficient_permissions: requires %s, role %s",
		strings.Join(names, " or "), token.Role)

	escalation := p.isAdminPath(path) && token.Role != p.config.AdminRole

	if p.isAPIPath(path) {
		return Decision{
			Kind:       DecisionJSONError,
			Result:     models.ResultForbidden,
			Reason:     reason,
			Token:      token,
			RateLimit:  rl,
			Status:     http.StatusForbidden,
			Code:       models.CodeForbidden,
			Message:    "Insufficient permissions",
			Escalation: escalation,
		}
	}

	query := url.Values{}
	query.Set("error", "forbidden")
	query.Set("message", reason)
	query.Set("requestId", logging.RequestIDFromContext(r.Context()))

	return Decision{
		Kind:       DecisionRedirect,
		Result:     models.ResultForbidden,
		Reason:     reason,
		Token:      token,
		RateLimit:  rl,
		Location:   "/?" + query.Encode(),
		Escalation: escalation,
	}
}

// Middleware wraps a downstream handler with the authorization pipeline.
// Panics anywhere in the chain degrade to a generic 500 envelope with
// full detail logged server-side only.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		r = r.WithContext(logging.ContextWithRequestID(r.Context(), requestID))

		defer func() {
			if rec := recover(); rec != nil {
				logging.Error().
					Str("component", "pipeline").
					Str("request_id", requestID).
					Str("path", r.URL.Path).
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered in authorization pipeline")
				writeJSONError(w, http.StatusInternalServerError,
					models.NewErrorEnvelope(models.CodeInternalError,
						"Internal server error", "", r.URL.Path, requestID))
			}
		}()

		start := time.Now()
		decision := p.Evaluate(r)

		if decision.Bypass {
			next.ServeHTTP(w, r)
			return
		}

		header := w.Header()
		applySecurityHeaders(header, p.csp, p.config.Production)
		applyRateLimitHeaders(header, decision.RateLimit)
		header.Set("x-request-id", requestID)

		path := routes.NormalizePath(r.URL.Path)
		p.emitEvent(r, path, requestID, decision)
		RecordDecision(string(decision.Result), time.Since(start))

		switch decision.Kind {
		case DecisionAllow:
			if p.prefs != nil && !p.isAPIPath(path) {
				p.prefs.Apply(w, r)
			}
			next.ServeHTTP(w, r)
		case DecisionRedirect:
			http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
		case DecisionJSONError:
			writeJSONError(w, decision.Status,
				models.NewErrorEnvelope(decision.Code, decision.Message,
					decision.Reason, path, requestID))
		}
	})
}

// emitEvent builds the security event for a decision and forwards it to
// the audit sink and the threat tracker.
func (p *Pipeline) emitEvent(r *http.Request, path, requestID string, d Decision) {
	ev := &models.SecurityEvent{
		Pathname:            path,
		Result:              d.Result,
		Reason:              d.Reason,
		IPAddress:           clientIP(r),
		UserAgent:           r.UserAgent(),
		Timestamp:           time.Now().UTC(),
		RequestID:           requestID,
		AttemptedEscalation: d.Escalation,
	}
	if d.Token != nil {
		ev.UserID = d.Token.ID
		ev.UserRole = d.Token.Role
	}

	p.sink.Record(ev)
	if p.tracker != nil {
		p.tracker.RecordEvent(ev)
	}
}

// selectTier picks the limiter budget for a path. A per-route rate-limit
// hint wins; otherwise auth paths get the strict tier, admin paths the
// sensitive tier, everything else the default.
func (p *Pipeline) selectTier(path, method string) (string, ratelimit.Config) {
	if cfg := p.routes.FindRouteConfig(path, method); cfg != nil && cfg.RateLimit != nil {
		if window, err := ratelimit.ParseWindow(cfg.RateLimit.Window); err == nil && cfg.RateLimit.Requests > 0 {
			return "route:" + cfg.Pattern, ratelimit.Config{
				Limit:  cfg.RateLimit.Requests,
				Window: window,
			}
		}
	}
	if hasPathPrefix(path, p.config.AuthPathPrefixes) {
		return "auth", p.config.Tiers.Auth
	}
	if hasPathPrefix(path, p.config.AdminPathPrefixes) {
		return "sensitive", p.config.Tiers.Sensitive
	}
	return "default", p.config.Tiers.Default
}

func (p *Pipeline) isAPIPath(path string) bool {
	return strings.HasPrefix(path, p.config.APIPrefix)
}

func (p *Pipeline) isAuthProviderPath(path string) bool {
	prefix := p.config.AuthProviderPrefix
	return strings.HasPrefix(path, prefix) ||
		path == strings.TrimSuffix(prefix, "/")
}

func (p *Pipeline) isAdminPath(path string) bool {
	return hasPathPrefix(path, p.config.AdminPathPrefixes)
}

// isStaticAsset reports whether the path is a static asset or framework
// internal: a configured prefix, or a file extension in the last segment.
func (p *Pipeline) isStaticAsset(path string) bool {
	for _, prefix := range p.config.StaticPrefixes {
		if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".")
}

// hasPathPrefix reports whether path equals a prefix or sits under it as
// a path segment boundary.
func hasPathPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		trimmed := strings.TrimSuffix(prefix, "/")
		if path == trimmed || strings.HasPrefix(path, trimmed+"/") {
			return true
		}
	}
	return false
}

// authFailureReason maps token retrieval errors onto event reasons.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "no_token"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrTokenUnavailable):
		return "token_unavailable"
	default:
		return "token_error"
	}
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSONError writes an error envelope with the JSON content type.
func writeJSONError(w http.ResponseWriter, status int, envelope *models.ErrorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error envelope")
	}
}
