// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/version"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	cache     cache.Cacher
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, c cache.Cacher, v version.Info) *HealthHandler {
	return &HealthHandler{db: db, cache: c, version: v, startTime: time.Now()}
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health. It answers 503 when any check fails.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]Check{"database": h.checkDatabase(ctx)}
	if h.cache != nil {
		checks["cache"] = h.checkCache(ctx)
	}

	status, code := "healthy", http.StatusOK
	for _, c := range checks {
		if c.Status != "healthy" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, code, HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.String(),
		Checks:    checks,
	})
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}

// checkCache round-trips a probe key through the cache.
func (h *HealthHandler) checkCache(ctx context.Context) Check {
	start := time.Now()
	const key = "health:probe"
	if err := h.cache.Set(ctx, key, []byte("ok"), 10*time.Second); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	if _, err := h.cache.Get(ctx, key); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	_ = h.cache.Delete(ctx, key)
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}
