// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package main is the entry point for the Praetor server.
//
// Praetor is a standalone route-authorization gateway for content
// platforms: it resolves which permissions an HTTP route requires,
// evaluates the caller's role against them, enforces per-client rate
// limits with automatic blocking of abusive sources, and emits
// structured security telemetry for every decision.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file and PRAETOR_ env vars (Koanf v2)
//  2. Logging: structured zerolog output
//  3. Route table: built-in route-permission configs with runtime CRUD
//  4. Role evaluator: Casbin RBAC model with resource/action/scope matching
//  5. Rate limiter and threat tracker: per-instance state, supervised sweeps
//  6. Token provider: JWT session verification behind a circuit breaker
//  7. HTTP server: chi router, authorization pipeline, admin API, metrics
//
// # Configuration
//
// Highest priority wins:
//   - PRAETOR_-prefixed environment variables (PRAETOR_SERVER_PORT, ...)
//   - Config file (config.yaml, or the path in PRAETOR_CONFIG)
//   - Built-in defaults
//
// For production:
//
//	export PRAETOR_SERVER_ENVIRONMENT=production
//	export PRAETOR_SECURITY_JWT_SECRET=$(openssl rand -base64 32)
//	./praetor
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops
// accepting connections, drains in-flight requests within the shutdown
// timeout, then stops the background sweeps and flushes the audit queue.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetor-sec/praetor/internal/api"
	"github.com/praetor-sec/praetor/internal/audit"
	"github.com/praetor-sec/praetor/internal/auth"
	"github.com/praetor-sec/praetor/internal/authz"
	"github.com/praetor-sec/praetor/internal/config"
	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/pipeline"
	"github.com/praetor-sec/praetor/internal/ratelimit"
	"github.com/praetor-sec/praetor/internal/routes"
	"github.com/praetor-sec/praetor/internal/supervisor"
	"github.com/praetor-sec/praetor/internal/supervisor/services"
	"github.com/praetor-sec/praetor/internal/threat"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting Praetor")

	// Route table with the built-in configs.
	table := routes.NewTable(routes.DefaultConfigs())

	// Role permission evaluator.
	evaluator, err := authz.NewEvaluator(authz.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init evaluator: %w", err)
	}
	defer evaluator.Close()

	// Rate limiter and threat tracker share the block set: the tracker
	// feeds suspicious IPs into the limiter's blocks.
	limiter := ratelimit.New(ratelimit.Options{
		AutoBlockThreshold: cfg.RateLimit.AutoBlockThreshold,
	})
	tracker := threat.NewTracker(threat.Config{
		BruteForceThreshold:   cfg.Threat.BruteForceThreshold,
		BruteForceWindow:      cfg.Threat.BruteForceWindow,
		SuspiciousIPThreshold: cfg.Threat.SuspiciousIPThreshold,
		AutoBlockThreshold:    cfg.Threat.AutoBlockThreshold,
		FailedAttemptTTL:      cfg.Threat.FailedAttemptTTL,
		SuspiciousIPTTL:       cfg.Threat.SuspiciousIPTTL,
	}, limiter)

	// Audit sink.
	sink := audit.NewLogSink(cfg.Audit.QueueSize)
	defer sink.Close()

	// Token provider: JWT verification behind a circuit breaker.
	jwtSecret := cfg.Security.JWTSecret
	if jwtSecret == "" {
		logging.Warn().Msg("No JWT secret configured, generating an ephemeral one (development only)")
		jwtSecret = logging.GenerateRequestID()
	}
	jwtProvider, err := auth.NewJWTProvider(auth.JWTConfig{
		Secret:     []byte(jwtSecret),
		CookieName: cfg.Security.SessionCookie,
		Issuer:     cfg.Security.JWTIssuer,
	})
	if err != nil {
		return fmt.Errorf("init token provider: %w", err)
	}
	tokens := auth.NewBreakerProvider(jwtProvider, auth.BreakerConfig{
		Timeout: cfg.Security.TokenTimeout,
	})

	// Authorization pipeline.
	pipe, err := pipeline.New(pipeline.Config{
		Production:            cfg.IsProduction(),
		ContentSecurityPolicy: cfg.Security.ContentSecurityPolicy,
		AdminRole:             cfg.Security.AdminRole,
		Tiers: pipeline.TierConfig{
			Auth:      ratelimit.Config{Limit: cfg.RateLimit.AuthLimit, Window: cfg.RateLimit.AuthWindow},
			Sensitive: ratelimit.Config{Limit: cfg.RateLimit.SensitiveLimit, Window: cfg.RateLimit.SensitiveWindow},
			Default:   ratelimit.Config{Limit: cfg.RateLimit.DefaultLimit, Window: cfg.RateLimit.DefaultWindow},
		},
	}, pipeline.Deps{
		Routes:    table,
		Evaluator: evaluator,
		Limiter:   limiter,
		Tokens:    tokens,
		Sink:      sink,
		Tracker:   tracker,
	})
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	// HTTP surface.
	admin := api.NewAdminHandlers(table, limiter, tracker)
	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins:     cfg.Security.CORSOrigins,
		AdminRequestsPerMinute: cfg.Security.AdminRequestsPerMinute,
	}, pipe, admin)

	// Downstream application: authorized requests that no praetor
	// endpoint claims fall through here. A gateway deployment would
	// proxy; the standalone server answers 404.
	app := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Supervisor tree: sweeps in the security layer, the server in the
	// api layer.
	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.DefaultTreeConfig(),
	)
	tree.AddSecurityService(services.NewSweepService("ratelimit-sweep", limiter, cfg.RateLimit.SweepInterval))
	tree.AddSecurityService(services.NewSweepService("threat-sweep", tracker, cfg.Threat.SweepInterval))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("Praetor stopped")
	return nil
}
