// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication, rate
// limiting and request hardening.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ocms-calendar/internal/handler"
	"github.com/olegiv/ocms-calendar/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUserID holds the signed-in member ID.
const ContextKeyUserID ContextKey = "user_id"

// AdminChecker reports whether userID may use the admin API.
type AdminChecker func(ctx context.Context, userID int64) (bool, error)

// LoadUser copies the signed-in member from the session into the request
// context. Guests pass through unchanged.
func LoadUser(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := session.UserID(r.Context(), sm); id != 0 {
				r = r.WithContext(WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext returns the signed-in member, or 0 for guests.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ContextKeyUserID).(int64)
	return id
}

// GetUserID returns the signed-in member of r, or 0 for guests.
func GetUserID(r *http.Request) int64 {
	return UserIDFromContext(r.Context())
}

// RequireUser answers 401 for guests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r) == 0 {
			handler.WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 for guests and 403 for members check rejects.
func RequireAdmin(check AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r)
			ok, err := check(r.Context(), userID)
			if err != nil {
				handler.WriteErr(w, r, err)
				return
			}
			if !ok {
				slog.Warn("admin access denied", "category", "auth", "user_id", userID, "path", r.URL.Path)
				handler.WriteError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
