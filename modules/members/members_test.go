// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package members

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/middleware"
	"github.com/olegiv/ocms-calendar/internal/testutil"
	"github.com/olegiv/ocms-calendar/internal/testutil/moduleutil"
)

func testModule(t *testing.T) *Module {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := scs.New()
	sm.Store = memstore.New()
	m := New(sm)
	moduleutil.InitModules(t, db, m)
	return m
}

func testRouter(m *Module) http.Handler {
	r := chi.NewRouter()
	r.Use(m.sessions.LoadAndSave)
	r.Use(middleware.LoadUser(m.sessions))
	m.RegisterRoutes(r)
	r.Route("/admin", m.RegisterAdminRoutes)
	return r
}

func mustCreate(t *testing.T, m *Module, given, surname, email string, admin bool) Member {
	t.Helper()
	mem, err := m.create(context.Background(), CreateParams{
		GivenName: given, Surname: surname, Email: email, Password: "correct-horse", IsAdmin: admin,
	})
	require.NoError(t, err)
	return mem
}

func TestModuleNew(t *testing.T) {
	m := New(nil)
	assert.Equal(t, "members", m.Name())
	assert.Equal(t, "1.0.0", m.Version())
	assert.NotEmpty(t, m.Description())
	moduleutil.AssertMigrations(t, m.Migrations(), 1)
}

func TestCreateValidation(t *testing.T) {
	m := testModule(t)
	ctx := context.Background()

	_, err := m.create(ctx, CreateParams{Email: "a@example.com"})
	var pe *calendar.PrerequisiteError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"given_name", "surname", "password"}, pe.Missing)

	var ve *calendar.ValidationError
	_, err = m.create(ctx, CreateParams{GivenName: "A", Surname: "B", Email: "not-an-email", Password: "long-enough"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	_, err = m.create(ctx, CreateParams{GivenName: "A", Surname: "B", Email: "a@example.com", Password: "short"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	mem := mustCreate(t, m, " Ann ", "Lee", "Ann@Example.com", false)
	assert.Equal(t, "Ann", mem.GivenName)
	assert.Equal(t, "ann@example.com", mem.Email)

	_, err = m.create(ctx, CreateParams{GivenName: "A", Surname: "B", Email: "ANN@example.com", Password: "long-enough"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestUserDirectory(t *testing.T) {
	m := testModule(t)
	ctx := context.Background()

	var _ calendar.UserDirectory = m

	zoe := mustCreate(t, m, "Zoe", "Adams", "zoe@example.com", true)
	mustCreate(t, m, "Bob", "Brown", "bob@example.com", false)

	u, err := m.LookupUser(ctx, zoe.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.User{ID: zoe.ID, GivenName: "Zoe", Surname: "Adams", Email: "zoe@example.com"}, u)

	_, err = m.LookupUser(ctx, 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Adams", users[0].Surname)

	opts, err := calendar.UserOptions(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "Adams, Zoe", opts[0].Label)

	isAdmin, err := m.IsAdmin(ctx, zoe.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	isAdmin, err = m.IsAdmin(ctx, 999)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestBootstrapAdmin(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	m := New(nil)
	moduleutil.RunMigrations(t, db, m.Migrations())
	ctx, _ := moduleutil.TestModuleContext(t, db)
	ctx.Config.AdminEmail = "root@example.com"
	ctx.Config.AdminPassword = "bootstrap-secret"
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.bootstrapAdmin(context.Background()), "second run does not duplicate")

	users, err := m.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	isAdmin, err := m.IsAdmin(context.Background(), users[0].ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func post(h http.Handler, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginFlow(t *testing.T) {
	m := testModule(t)
	h := testRouter(m)
	mustCreate(t, m, "Ann", "Lee", "ann@example.com", false)

	rec := post(h, "/auth/login", `{"email":"ann@example.com","password":"wrong-password"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(h, "/auth/login", `{"email":"ANN@example.com","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "ann@example.com", me.Email)
	assert.NotNil(t, me.LastLoginAt)

	rec = post(h, "/auth/logout", "", cookies)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginLockout(t *testing.T) {
	m := testModule(t)
	h := testRouter(m)
	mustCreate(t, m, "Ann", "Lee", "ann@example.com", false)

	var last int
	for range 5 {
		last = post(h, "/auth/login", `{"email":"ann@example.com","password":"wrong-password"}`, nil).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	locked, _ := m.protection.IsLocked("ann@example.com")
	assert.True(t, locked)
}

func TestAdminMembers(t *testing.T) {
	m := testModule(t)
	h := testRouter(m)

	rec := post(h, "/admin/members", `{"given_name":"Eve","surname":"Stone","email":"eve@example.com","password":"long-enough"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = post(h, "/admin/members", `{"given_name":"Eve"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/members", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/members/"+strconv.FormatInt(created.ID, 10), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/members/"+strconv.FormatInt(created.ID, 10), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	m := testModule(t)
	self := mustCreate(t, m, "Root", "Admin", "root@example.com", true)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), self.ID)))
		})
	})
	m.RegisterAdminRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/members/"+strconv.FormatInt(self.ID, 10), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
