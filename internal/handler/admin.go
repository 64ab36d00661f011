// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/module"
	"github.com/olegiv/ocms-calendar/internal/store"
)

// AdminHandler serves the core admin endpoints: modules, hooks, audit log and
// cache.
type AdminHandler struct {
	registry *module.Registry
	hooks    *module.HookRegistry
	queries  *store.Queries
	cache    cache.Cacher
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(reg *module.Registry, hooks *module.HookRegistry, q *store.Queries, c cache.Cacher) *AdminHandler {
	return &AdminHandler{registry: reg, hooks: hooks, queries: q, cache: c}
}

// Routes mounts the handler on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/modules", h.ListModules)
	r.Put("/modules/{name}/active", h.SetModuleActive)
	r.Get("/hooks", h.ListHooks)
	r.Get("/audit", h.ListAudit)
	r.Get("/cache", h.CacheStats)
	r.Delete("/cache", h.ClearCache)
}

// ListModules handles GET /admin/modules.
func (h *AdminHandler) ListModules(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.registry.ListInfo())
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetModuleActive handles PUT /admin/modules/{name}/active.
func (h *AdminHandler) SetModuleActive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.registry.Get(name); !ok {
		WriteError(w, http.StatusNotFound, "module not found")
		return
	}

	var req setActiveRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteErr(w, r, err)
		return
	}
	if err := h.registry.SetActive(name, req.Active); err != nil {
		WriteErr(w, r, err)
		return
	}
	if h.cache != nil {
		_ = h.cache.Clear(r.Context())
	}
	WriteJSON(w, http.StatusOK, map[string]any{"name": name, "active": req.Active})
}

// ListHooks handles GET /admin/hooks.
func (h *AdminHandler) ListHooks(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.hooks.ListHookInfo())
}

type auditPage struct {
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	Entries []store.AuditEntry `json:"entries"`
}

// ListAudit handles GET /admin/audit?limit=&offset=.
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := Pagination(r, 50, 500)
	if err != nil {
		WriteErr(w, r, err)
		return
	}

	total, err := h.queries.CountAuditEntries(r.Context())
	if err != nil {
		WriteErr(w, r, err)
		return
	}
	entries, err := h.queries.ListAuditEntries(r.Context(), limit, offset)
	if err != nil {
		WriteErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.AuditEntry{}
	}

	WriteJSON(w, http.StatusOK, auditPage{Total: total, Limit: limit, Offset: offset, Entries: entries})
}

// CacheStats handles GET /admin/cache.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	sp, ok := h.cache.(cache.StatsProvider)
	if !ok {
		WriteError(w, http.StatusNotImplemented, "cache backend has no statistics")
		return
	}
	WriteJSON(w, http.StatusOK, sp.Stats())
}

// ClearCache handles DELETE /admin/cache.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		WriteErr(w, r, errors.New("cache not configured"))
		return
	}
	if err := h.cache.Clear(r.Context()); err != nil {
		WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
