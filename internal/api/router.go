// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praetor-sec/praetor/internal/middleware"
	"github.com/praetor-sec/praetor/internal/pipeline"
)

// RouterConfig holds the HTTP router settings.
type RouterConfig struct {
	// CORSAllowedOrigins enables CORS when non-empty.
	CORSAllowedOrigins []string

	// AdminRequestsPerMinute is a per-IP ceiling on the admin surface,
	// independent of the pipeline's own limiter tiers.
	AdminRequestsPerMinute int
}

// Router wires the authorization pipeline, the admin surface and the
// operational endpoints into one chi handler.
type Router struct {
	config   RouterConfig
	pipeline *pipeline.Pipeline
	admin    *AdminHandlers
}

// NewRouter creates the router.
func NewRouter(config RouterConfig, p *pipeline.Pipeline, admin *AdminHandlers) *Router {
	if config.AdminRequestsPerMinute <= 0 {
		config.AdminRequestsPerMinute = 120
	}
	return &Router{config: config, pipeline: p, admin: admin}
}

// Handler assembles the middleware stack and routes. app is the
// downstream application handler that authorized requests fall through
// to.
func (ro *Router) Handler(app http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	if len(ro.config.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   ro.config.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(ro.pipeline.Middleware)

	r.Get("/health", ro.admin.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/admin/security", func(r chi.Router) {
		r.Use(httprate.LimitByIP(ro.config.AdminRequestsPerMinute, time.Minute))

		r.Get("/routes", ro.admin.ListRoutes)
		r.Post("/routes", ro.admin.CreateRoute)
		r.Patch("/routes", ro.admin.UpdateRoute)
		r.Delete("/routes", ro.admin.DeleteRoute)
		r.Get("/routes/export", ro.admin.ExportRoutes)
		r.Post("/routes/import", ro.admin.ImportRoutes)

		r.Get("/blocked", ro.admin.ListBlocked)
		r.Delete("/blocked", ro.admin.Unblock)

		r.Get("/threat", ro.admin.ThreatStatus)
	})

	r.NotFound(app.ServeHTTP)
	r.MethodNotAllowed(app.ServeHTTP)

	return r
}
