// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package passage

import (
	"net/http"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/handler"
	"github.com/olegiv/ocms-calendar/internal/middleware"
)

// handleMine handles GET /passage/keys/mine - keys of the signed-in member.
func (m *Module) handleMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == 0 {
		handler.WriteJSON(w, http.StatusOK, []Key{})
		return
	}
	keys, err := m.userKeys(r.Context(), userID)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, keys)
}

// handleListKeys handles GET /admin/passage/keys.
func (m *Module) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := m.listKeys(r.Context())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, keys)
}

// handleCreateKey handles POST /admin/passage/keys.
func (m *Module) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req KeyParams
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	k, err := m.createKey(r.Context(), req)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("passage key created", "category", "permission", "key_id", k.ID, "user_id", middleware.GetUserID(r))
	handler.WriteJSON(w, http.StatusCreated, k)
}

// handleDeleteKey handles DELETE /admin/passage/keys/{id}.
func (m *Module) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if err := m.deleteKey(r.Context(), calendar.PermissionID(id)); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Warn("passage key deleted", "category", "permission", "key_id", id, "user_id", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleUserKeys handles GET /admin/passage/users/{userID}/keys.
func (m *Module) handleUserKeys(w http.ResponseWriter, r *http.Request) {
	userID, err := handler.URLParamID(r, "userID")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	keys, err := m.userKeys(r.Context(), userID)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, keys)
}

func grantParams(r *http.Request) (int64, calendar.PermissionID, error) {
	userID, err := handler.URLParamID(r, "userID")
	if err != nil {
		return 0, 0, err
	}
	keyID, err := handler.URLParamID(r, "keyID")
	if err != nil {
		return 0, 0, err
	}
	return userID, calendar.PermissionID(keyID), nil
}

// handleGrant handles PUT /admin/passage/users/{userID}/keys/{keyID}.
func (m *Module) handleGrant(w http.ResponseWriter, r *http.Request) {
	userID, keyID, err := grantParams(r)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if err := m.grant(r.Context(), userID, keyID); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("passage key granted", "category", "permission", "key_id", keyID, "member_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleRevoke handles DELETE /admin/passage/users/{userID}/keys/{keyID}.
func (m *Module) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, keyID, err := grantParams(r)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if err := m.revoke(r.Context(), userID, keyID); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Warn("passage key revoked", "category", "permission", "key_id", keyID, "member_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
