// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package members

import (
	"database/sql"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/olegiv/ocms-calendar/internal/handler"
	"github.com/olegiv/ocms-calendar/internal/middleware"
	"github.com/olegiv/ocms-calendar/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin handles POST /auth/login.
func (m *Module) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.WriteErr(w, r, err)
		return
	}

	if locked, remaining := m.protection.IsLocked(req.Email); locked {
		writeLocked(w, remaining.Seconds())
		return
	}

	mem, err := m.authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, sql.ErrNoRows) {
		m.ctx.Logger.Warn("login failed", "category", "auth", "email", req.Email)
		if locked, d := m.protection.RecordFailure(req.Email); locked {
			writeLocked(w, d.Seconds())
			return
		}
		handler.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}

	m.protection.RecordSuccess(req.Email)
	if err := session.Login(r.Context(), m.sessions, mem.ID); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("member logged in", "category", "auth", "user_id", mem.ID)
	handler.WriteJSON(w, http.StatusOK, mem)
}

func writeLocked(w http.ResponseWriter, seconds float64) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(seconds))))
	handler.WriteError(w, http.StatusTooManyRequests, "account temporarily locked, try again later")
}

// handleLogout handles POST /auth/logout.
func (m *Module) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := session.Logout(r.Context(), m.sessions); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /auth/me.
func (m *Module) handleMe(w http.ResponseWriter, r *http.Request) {
	mem, err := m.get(r.Context(), middleware.GetUserID(r))
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, mem)
}

// handleAdminList handles GET /admin/members.
func (m *Module) handleAdminList(w http.ResponseWriter, r *http.Request) {
	list, err := m.list(r.Context())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if list == nil {
		list = []Member{}
	}
	handler.WriteJSON(w, http.StatusOK, list)
}

// handleAdminCreate handles POST /admin/members.
func (m *Module) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateParams
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	mem, err := m.create(r.Context(), req)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("member created", "category", "auth", "member_id", mem.ID, "user_id", middleware.GetUserID(r))
	handler.WriteJSON(w, http.StatusCreated, mem)
}

// handleAdminDelete handles DELETE /admin/members/{id}.
func (m *Module) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if id == middleware.GetUserID(r) {
		handler.WriteError(w, http.StatusConflict, "cannot delete your own account")
		return
	}
	if err := m.delete(r.Context(), id); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Warn("member deleted", "category", "auth", "member_id", id, "user_id", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}
