// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/praetor-sec/praetor/internal/models"
	"github.com/praetor-sec/praetor/internal/ratelimit"
	"github.com/praetor-sec/praetor/internal/routes"
	"github.com/praetor-sec/praetor/internal/threat"
)

func newTestHandlers(t *testing.T) *AdminHandlers {
	t.Helper()

	table := routes.NewTable([]models.RouteConfig{
		{Pattern: "/api/public/products", Description: "Product listing", IsPublic: true},
		{
			Pattern:     "/api/admin/users",
			Description: "User management API",
			Permissions: []models.Permission{{Resource: "users", Action: "read", Scope: "all"}},
		},
	})
	limiter := ratelimit.New(ratelimit.Options{})
	tracker := threat.NewTracker(threat.Config{}, limiter)

	return NewAdminHandlers(table, limiter, tracker)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	resp := &models.APIResponse{}
	if err := json.NewDecoder(w.Body).Decode(resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

func TestListRoutes(t *testing.T) {
	h := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.ListRoutes(w, httptest.NewRequest("GET", "/api/admin/security/routes", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	configs, ok := resp.Data.([]interface{})
	if !ok || len(configs) != 2 {
		t.Errorf("data = %v, want 2 route configs", resp.Data)
	}
}

func TestCreateRoute(t *testing.T) {
	h := newTestHandlers(t)

	body := `{
		"pattern": "/api/orders/[id]",
		"description": "Order detail",
		"permissions": [{"resource": "orders", "action": "read", "scope": "own"}]
	}`
	w := httptest.NewRecorder()
	h.CreateRoute(w, httptest.NewRequest("POST", "/api/admin/security/routes", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if h.routes.FindRouteConfig("/api/orders/42", "GET") == nil {
		t.Error("created route should be matchable")
	}
}

func TestCreateRouteRejectsDuplicate(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"pattern": "/api/public/products", "description": "dup"}`
	w := httptest.NewRecorder()
	h.CreateRoute(w, httptest.NewRequest("POST", "/api/admin/security/routes", strings.NewReader(body)))

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCreateRouteRejectsInvalid(t *testing.T) {
	h := newTestHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"pattern": `},
		{"missing description", `{"pattern": "/api/things"}`},
		{"bad pattern", `{"pattern": "no-leading-slash", "description": "x"}`},
		{"bad method", `{"pattern": "/api/things", "description": "x", "methods": ["FETCH"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.CreateRoute(w, httptest.NewRequest("POST", "/api/admin/security/routes", strings.NewReader(tt.body)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			resp := decodeResponse(t, w)
			if resp.Error == nil || resp.Error.Code != models.CodeInvalidInput {
				t.Errorf("error = %+v, want INVALID_INPUT", resp.Error)
			}
		})
	}
}

func TestUpdateRoute(t *testing.T) {
	h := newTestHandlers(t)

	body := `{
		"pattern": "/api/admin/users",
		"description": "Renamed",
		"rateLimit": {"requests": 5, "window": "1m"}
	}`
	w := httptest.NewRecorder()
	h.UpdateRoute(w, httptest.NewRequest("PATCH", "/api/admin/security/routes", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	cfg := h.routes.FindRouteConfig("/api/admin/users", "GET")
	if cfg == nil {
		t.Fatal("route should still exist")
	}
	if cfg.Description != "Renamed" {
		t.Errorf("Description = %q, want Renamed", cfg.Description)
	}
	if cfg.RateLimit == nil || cfg.RateLimit.Requests != 5 || cfg.RateLimit.Window != "1m" {
		t.Errorf("RateLimit = %+v, want 5 per 1m", cfg.RateLimit)
	}
	// Untouched fields stay as they were.
	if len(cfg.Permissions) != 1 {
		t.Errorf("Permissions = %v, want the original entry", cfg.Permissions)
	}
}

func TestUpdateRouteUnknownPattern(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"pattern": "/api/nothing", "description": "x"}`
	w := httptest.NewRecorder()
	h.UpdateRoute(w, httptest.NewRequest("PATCH", "/api/admin/security/routes", strings.NewReader(body)))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeleteRoute(t *testing.T) {
	h := newTestHandlers(t)

	target := "/api/admin/security/routes?pattern=" + url.QueryEscape("/api/public/products")
	w := httptest.NewRecorder()
	h.DeleteRoute(w, httptest.NewRequest("DELETE", target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if h.routes.FindRouteConfig("/api/public/products", "GET") != nil {
		t.Error("deleted route should no longer match")
	}

	w = httptest.NewRecorder()
	h.DeleteRoute(w, httptest.NewRequest("DELETE", target, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestDeleteRouteRequiresPattern(t *testing.T) {
	h := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.DeleteRoute(w, httptest.NewRequest("DELETE", "/api/admin/security/routes", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.ExportRoutes(w, httptest.NewRequest("GET", "/api/admin/security/routes/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "routes.json") {
		t.Errorf("Content-Disposition = %q, want attachment filename", cd)
	}
	exported := w.Body.String()

	// Delete a route, then import the snapshot to restore it.
	del := "/api/admin/security/routes?pattern=" + url.QueryEscape("/api/public/products")
	h.DeleteRoute(httptest.NewRecorder(), httptest.NewRequest("DELETE", del, nil))

	w = httptest.NewRecorder()
	h.ImportRoutes(w, httptest.NewRequest("POST", "/api/admin/security/routes/import", strings.NewReader(exported)))
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if h.routes.FindRouteConfig("/api/public/products", "GET") == nil {
		t.Error("import should restore the deleted route")
	}
}

func TestImportRejectsInvalidPayload(t *testing.T) {
	h := newTestHandlers(t)
	before := len(h.routes.All())

	body := `[{"pattern": "bad pattern", "description": ""}]`
	w := httptest.NewRecorder()
	h.ImportRoutes(w, httptest.NewRequest("POST", "/api/admin/security/routes/import", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(h.routes.All()) != before {
		t.Error("failed import must not modify the table")
	}
}

func TestUnblock(t *testing.T) {
	h := newTestHandlers(t)
	h.limiter.Block("10.9.0.1")

	w := httptest.NewRecorder()
	h.Unblock(w, httptest.NewRequest("DELETE", "/api/admin/security/blocked?key=10.9.0.1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if h.limiter.IsBlocked("10.9.0.1") {
		t.Error("key should be unblocked")
	}

	w = httptest.NewRecorder()
	h.Unblock(w, httptest.NewRequest("DELETE", "/api/admin/security/blocked?key=10.9.0.1", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unblocking a non-blocked key status = %d, want 404", w.Code)
	}
}

func TestListBlocked(t *testing.T) {
	h := newTestHandlers(t)
	h.limiter.Block("10.9.0.2")

	w := httptest.NewRecorder()
	h.ListBlocked(w, httptest.NewRequest("GET", "/api/admin/security/blocked", nil))

	resp := decodeResponse(t, w)
	keys, ok := resp.Data.([]interface{})
	if !ok || len(keys) != 1 || keys[0] != "10.9.0.2" {
		t.Errorf("data = %v, want the blocked key", resp.Data)
	}
}

func TestThreatStatus(t *testing.T) {
	h := newTestHandlers(t)

	h.tracker.RecordEvent(&models.SecurityEvent{
		Result:    models.ResultUnauthorized,
		Pathname:  "/api/orders",
		IPAddress: "10.9.0.3",
	})

	w := httptest.NewRecorder()
	h.ThreatStatus(w, httptest.NewRequest("GET", "/api/admin/security/threat?key=10.9.0.3", nil))

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %v, want an object", resp.Data)
	}
	if data["violations"].(float64) != 1 {
		t.Errorf("violations = %v, want 1", data["violations"])
	}
	if data["failedAttempts"].(float64) != 1 {
		t.Errorf("failedAttempts = %v, want 1", data["failedAttempts"])
	}
	if data["blocked"].(bool) {
		t.Error("key should not be blocked")
	}

	w = httptest.NewRecorder()
	h.ThreatStatus(w, httptest.NewRequest("GET", "/api/admin/security/threat", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing key status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
}
