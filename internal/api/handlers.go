// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package api exposes the administrative HTTP surface: route table CRUD
// and export/import, block-set inspection and unblocking, and threat
// state lookups. Everything here sits behind the authorization pipeline
// and requires admin-grade permissions.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
	"github.com/praetor-sec/praetor/internal/ratelimit"
	"github.com/praetor-sec/praetor/internal/routes"
	"github.com/praetor-sec/praetor/internal/threat"
	"github.com/praetor-sec/praetor/internal/validation"
)

// maxImportBytes bounds a route-config import payload.
const maxImportBytes = 1 << 20

// AdminHandlers provides the administrative endpoints.
type AdminHandlers struct {
	routes  *routes.Table
	limiter *ratelimit.Limiter
	tracker *threat.Tracker
}

// NewAdminHandlers creates the admin handler set.
func NewAdminHandlers(table *routes.Table, limiter *ratelimit.Limiter, tracker *threat.Tracker) *AdminHandlers {
	return &AdminHandlers{
		routes:  table,
		limiter: limiter,
		tracker: tracker,
	}
}

// ListRoutes handles GET /api/admin/security/routes.
func (h *AdminHandlers) ListRoutes(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, h.routes.All())
}

// CreateRoute handles POST /api/admin/security/routes.
func (h *AdminHandlers) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var cfg models.RouteConfig
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImportBytes)).Decode(&cfg); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Malformed route config", nil)
		return
	}

	if verr := validation.ValidateStruct(&cfg); verr != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Invalid route config",
			map[string]interface{}{"errors": verr.Messages()})
		return
	}

	if err := h.routes.AddRouteConfig(cfg); err != nil {
		if errors.Is(err, routes.ErrPatternExists) {
			writeError(w, r, http.StatusConflict, models.CodeInvalidInput, "Pattern already exists", nil)
			return
		}
		writeError(w, r, http.StatusInternalServerError, models.CodeInternalError, "Failed to add route", nil)
		return
	}

	writeSuccess(w, r, http.StatusCreated, cfg)
}

// routeUpdateRequest is the wire form of a partial route update. The
// pattern identifies the target by exact string equality.
type routeUpdateRequest struct {
	Pattern      string                  `json:"pattern"`
	Permissions  *[]models.Permission    `json:"permissions,omitempty"`
	Description  *string                 `json:"description,omitempty"`
	IsPublic     *bool                   `json:"isPublic,omitempty"`
	RequiresAuth *bool                   `json:"requiresAuth,omitempty"`
	Methods      *[]string               `json:"methods,omitempty"`
	RateLimit    *models.RouteRateLimit  `json:"rateLimit,omitempty"`
	CacheTTL     *int                    `json:"cacheTtl,omitempty"`
}

// UpdateRoute handles PATCH /api/admin/security/routes.
func (h *AdminHandlers) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	var req routeUpdateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImportBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Malformed update request", nil)
		return
	}
	if req.Pattern == "" {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Pattern is required", nil)
		return
	}

	update := routes.RouteConfigUpdate{
		Permissions:  req.Permissions,
		Description:  req.Description,
		IsPublic:     req.IsPublic,
		RequiresAuth: req.RequiresAuth,
		Methods:      req.Methods,
		CacheTTL:     req.CacheTTL,
	}
	if req.RateLimit != nil {
		rl := req.RateLimit
		update.RateLimit = &rl
	}

	if err := h.routes.UpdateRouteConfig(req.Pattern, update); err != nil {
		if errors.Is(err, routes.ErrPatternNotFound) {
			writeError(w, r, http.StatusNotFound, models.CodeInvalidInput, "Pattern not found", nil)
			return
		}
		writeError(w, r, http.StatusInternalServerError, models.CodeInternalError, "Failed to update route", nil)
		return
	}

	writeSuccess(w, r, http.StatusOK, map[string]string{"pattern": req.Pattern})
}

// DeleteRoute handles DELETE /api/admin/security/routes?pattern=...
// The pattern travels as a query parameter because patterns contain
// slashes and bracket characters.
func (h *AdminHandlers) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Pattern is required", nil)
		return
	}

	if err := h.routes.RemoveRouteConfig(pattern); err != nil {
		if errors.Is(err, routes.ErrPatternNotFound) {
			writeError(w, r, http.StatusNotFound, models.CodeInvalidInput, "Pattern not found", nil)
			return
		}
		writeError(w, r, http.StatusInternalServerError, models.CodeInternalError, "Failed to remove route", nil)
		return
	}

	writeSuccess(w, r, http.StatusOK, map[string]string{"pattern": pattern})
}

// ExportRoutes handles GET /api/admin/security/routes/export, returning the raw
// JSON array accepted by ImportRoutes.
func (h *AdminHandlers) ExportRoutes(w http.ResponseWriter, r *http.Request) {
	data, err := h.routes.Export()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, models.CodeInternalError, "Export failed", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="routes.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Err(err).Str("component", "api").Msg("Failed to write route export")
	}
}

// ImportRoutes handles POST /api/admin/security/routes/import. The table is
// replaced atomically only when every entry validates; otherwise the
// per-entry errors are returned and the table is untouched.
func (h *AdminHandlers) ImportRoutes(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Failed to read request body", nil)
		return
	}

	if err := h.routes.Import(data); err != nil {
		var importErr *routes.ImportError
		if errors.As(err, &importErr) {
			writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Import validation failed",
				map[string]interface{}{"errors": importErr.Entries})
			return
		}
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Malformed import payload", nil)
		return
	}

	writeSuccess(w, r, http.StatusOK, map[string]int{"routes": len(h.routes.All())})
}

// ListBlocked handles GET /api/admin/security/blocked.
func (h *AdminHandlers) ListBlocked(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, h.limiter.BlockedKeys())
}

// Unblock handles DELETE /api/admin/security/blocked?key=...
func (h *AdminHandlers) Unblock(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Key is required", nil)
		return
	}

	if !h.limiter.Unblock(key) {
		writeError(w, r, http.StatusNotFound, models.CodeInvalidInput, "Key is not blocked", nil)
		return
	}

	logging.Info().Str("component", "api").Str("key", key).Msg("Key unblocked by administrator")
	writeSuccess(w, r, http.StatusOK, map[string]string{"key": key})
}

// ThreatStatus handles GET /api/admin/security/threat?key=...
// Reports the rolling violation and failed-attempt counts for a key.
func (h *AdminHandlers) ThreatStatus(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidInput, "Key is required", nil)
		return
	}

	writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"key":            key,
		"violations":     h.tracker.Violations(key),
		"failedAttempts": h.tracker.FailedAttempts(key),
		"blocked":        h.limiter.IsBlocked(key),
	})
}

// Health handles GET /health.
func (h *AdminHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Err(err).Str("component", "api").Msg("Failed to encode response")
	}
}
