// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/scheduler"
)

// JobsHandler exposes the scheduled jobs of all modules.
type JobsHandler struct {
	sched *scheduler.Registry
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(s *scheduler.Registry) *JobsHandler {
	return &JobsHandler{sched: s}
}

// Routes mounts the handler on r.
func (h *JobsHandler) Routes(r chi.Router) {
	r.Get("/jobs", h.List)
	r.Post("/jobs/{source}/{name}/run", h.Run)
	r.Put("/jobs/{source}/{name}/schedule", h.UpdateSchedule)
	r.Delete("/jobs/{source}/{name}/schedule", h.ResetSchedule)
}

// List handles GET /admin/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.sched.List())
}

// Run handles POST /admin/jobs/{source}/{name}/run.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	err := h.sched.TriggerNow(r.Context(), chi.URLParam(r, "source"), chi.URLParam(r, "name"))
	if errors.Is(err, scheduler.ErrJobNotFound) {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateSchedule handles PUT /admin/jobs/{source}/{name}/schedule.
func (h *JobsHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteErr(w, r, err)
		return
	}
	if err := scheduler.ValidateSchedule(req.Schedule); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: "schedule"})
		return
	}

	err := h.sched.UpdateSchedule(r.Context(), chi.URLParam(r, "source"), chi.URLParam(r, "name"), req.Schedule)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetSchedule handles DELETE /admin/jobs/{source}/{name}/schedule.
func (h *JobsHandler) ResetSchedule(w http.ResponseWriter, r *http.Request) {
	err := h.sched.ResetSchedule(r.Context(), chi.URLParam(r, "source"), chi.URLParam(r, "name"))
	if errors.Is(err, scheduler.ErrJobNotFound) {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
