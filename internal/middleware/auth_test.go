// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-calendar/internal/session"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestGetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, int64(0), GetUserID(req))

	req = req.WithContext(WithUserID(req.Context(), 42))
	assert.Equal(t, int64(42), GetUserID(req))
}

func TestLoadUser(t *testing.T) {
	sm := scs.New()
	sm.Store = memstore.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.Login(r.Context(), sm, 7))
		w.WriteHeader(http.StatusNoContent)
	})
	var seen int64 = -1
	mux.Handle("/me", LoadUser(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r)
	})))
	srv := sm.LoadAndSave(mux)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, int64(0), seen, "guest")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	srv.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, int64(7), seen)
}

func TestRequireUser(t *testing.T) {
	h := RequireUser(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication required")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUserID(req.Context(), 1))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	check := func(_ context.Context, id int64) (bool, error) {
		switch id {
		case 1:
			return true, nil
		case 3:
			return false, errors.New("db down")
		}
		return false, nil
	}
	h := RequireAdmin(check)(okHandler)

	tests := []struct {
		name   string
		userID int64
		want   int
	}{
		{"guest", 0, http.StatusUnauthorized},
		{"admin", 1, http.StatusOK},
		{"member", 2, http.StatusForbidden},
		{"lookup error", 3, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.userID != 0 {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
