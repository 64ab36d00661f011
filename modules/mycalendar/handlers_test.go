// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/handler"
	"github.com/olegiv/ocms-calendar/internal/middleware"
)

func testRouter(m *Module) http.Handler {
	r := chi.NewRouter()
	m.RegisterRoutes(r)
	r.Route("/admin", m.RegisterAdminRoutes)
	return r
}

// do sends a request as userID (0 for guests) and returns the recorder.
func do(t *testing.T, h http.Handler, method, path, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleVisible(t *testing.T) {
	perms := newPerms(map[int64][]calendar.PermissionID{7: {2}})
	m, _ := testModule(t, perms)
	seedVisibility(t, m)
	h := testRouter(m)

	rec := do(t, h, http.MethodGet, "/calendar/events", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	guest := decodeBody[[]map[string]any](t, rec)
	require.Len(t, guest, 2)
	assert.Equal(t, "Breakfast", guest[0]["name"])
	assert.Equal(t, "9:00 am", guest[0]["human_time"])
	assert.Equal(t, float64(14), guest[0]["day"])
	assert.NotContains(t, guest[0], "TimeErr")

	rec = do(t, h, http.MethodGet, "/calendar/events", "", 7)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 3)

	rec = do(t, h, http.MethodGet, "/calendar/events?past=100&future=0", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 2, "Old fair and Breakfast")

	rec = do(t, h, http.MethodGet, "/calendar/events?past=-1", "", 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "past", decodeBody[handler.ErrorResponse](t, rec).Field)

	rec = do(t, h, http.MethodGet, "/calendar/events?future=soon", "", 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVisibleEvent(t *testing.T) {
	m, _ := testModule(t, newPerms(nil))
	ctx := context.Background()
	require.NoError(t, saveSettings(ctx, m.ctx.DB, Settings{TimeFormat: "H:i", PublicPermissions: []calendar.PermissionID{1}}))
	pub := mustCategory(t, m, "Public", 1)
	hidden := mustCategory(t, m, "Hidden", 5)

	d, _ := calendar.ParseDate("2025-06-20")
	shown, err := m.saveEvent(ctx, calendar.Event{
		Date: d, Time: "18:30", Name: "Talk", IsPublished: true,
		Categories: []calendar.Category{pub}, Excerpt: "Bring **snacks**<script>alert(1)</script>",
	})
	require.NoError(t, err)
	secret := mustEvent(t, m, "2025-06-20", "", "Secret", true, hidden)
	h := testRouter(m)

	rec := do(t, h, http.MethodGet, "/calendar/events/"+strconv.FormatInt(shown.ID, 10), "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "18:30", body["human_time"])
	assert.Contains(t, body["excerpt_html"], "<strong>snacks</strong>")
	assert.NotContains(t, body["excerpt_html"], "<script>")

	rec = do(t, h, http.MethodGet, "/calendar/events/"+strconv.FormatInt(secret.ID, 10), "", 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/calendar/events/abc", "", 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleICS(t *testing.T) {
	m, _ := testModule(t)
	pub := mustCategory(t, m, "Public", 1)
	mustEvent(t, m, "2025-06-20", "18:30", "Talk", true, pub)
	mustEvent(t, m, "2025-06-21", "", "Fair", true)

	rec := do(t, testRouter(m), http.MethodGet, "/calendar/events.ics", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Talk")
	assert.Contains(t, body, "DTSTART:20250620T183000")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20250621")
	assert.Contains(t, body, "CATEGORIES:Public")
}

func TestAdminEventCRUD(t *testing.T) {
	users := newUsers(calendar.User{ID: 3, GivenName: "Grace", Surname: "Hopper"})
	m, _ := testModule(t, users)
	pub := mustCategory(t, m, "Public", 1)
	h := testRouter(m)

	rec := do(t, h, http.MethodPost, "/admin/calendar/events",
		`{"date":"2025-06-20","time":"18:30","name":"Talk","is_published":true,"category_ids":[`+strconv.FormatInt(pub.ID, 10)+`]}`, 3)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(3), created["owner_id"], "owner defaults to the signed-in user")
	assert.Equal(t, "Hopper Grace", created["owner_name"])
	assert.Equal(t, "6:30 pm", created["human_time"])
	id := int64(created["id"].(float64))

	// Echoing a response back, derived keys included, is accepted.
	created["name"] = "Evening talk"
	created["category_ids"] = []int64{}
	payload, err := json.Marshal(created)
	require.NoError(t, err)
	rec = do(t, h, http.MethodPut, "/admin/calendar/events/"+strconv.FormatInt(id, 10), string(payload), 3)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Evening talk", updated["name"])
	assert.Equal(t, "2025-06-20T00:00:00Z", updated["date"])
	assert.Empty(t, updated["categories"])

	rec = do(t, h, http.MethodGet, "/admin/calendar/events?published=true", "", 3)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[struct {
		Events []map[string]any `json:"events"`
		Total  int64            `json:"total"`
		Limit  int              `json:"limit"`
	}](t, rec)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, defaultAdminLimit, page.Limit)
	require.Len(t, page.Events, 1)

	rec = do(t, h, http.MethodGet, "/admin/calendar/events/"+strconv.FormatInt(id, 10), "", 3)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/admin/calendar/events/"+strconv.FormatInt(id, 10), "", 3)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/admin/calendar/events/"+strconv.FormatInt(id, 10), "", 3)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEventErrors(t *testing.T) {
	m, _ := testModule(t)
	h := testRouter(m)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"missing fields", `{"time":"10:00"}`, http.StatusUnprocessableEntity, ""},
		{"bad date", `{"date":"20/06/2025","name":"X"}`, http.StatusBadRequest, "date"},
		{"bad time", `{"date":"2025-06-20","name":"X","time":"7pm"}`, http.StatusBadRequest, "time"},
		{"bad thru", `{"date":"2025-06-20","name":"X","thru":"never"}`, http.StatusBadRequest, "thru"},
		{"unknown category", `{"date":"2025-06-20","name":"X","category_ids":[404]}`, http.StatusBadRequest, "category_ids"},
		{"not json", `{`, http.StatusBadRequest, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/admin/calendar/events", tt.body, 1)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decodeBody[handler.ErrorResponse](t, rec).Field)
			}
		})
	}

	rec := do(t, h, http.MethodPut, "/admin/calendar/events/77", `{"date":"2025-06-20","name":"X"}`, 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCategories(t *testing.T) {
	m, _ := testModule(t)
	h := testRouter(m)

	rec := do(t, h, http.MethodPost, "/admin/calendar/categories", `{"name":"Board Room","permission_id":4}`, 1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decodeBody[calendar.Category](t, rec)
	assert.Equal(t, "board-room", c.Slug)

	rec = do(t, h, http.MethodPost, "/admin/calendar/categories", `{"name":"X","colour":"red"}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = do(t, h, http.MethodPut, "/admin/calendar/categories/"+strconv.FormatInt(c.ID, 10), `{"name":"Boardroom","slug":"boardroom","permission_id":4}`, 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "boardroom", decodeBody[calendar.Category](t, rec).Slug)

	rec = do(t, h, http.MethodGet, "/admin/calendar/categories", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]calendar.Category](t, rec), 1)

	rec = do(t, h, http.MethodDelete, "/admin/calendar/categories/"+strconv.FormatInt(c.ID, 10), "", 1)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/admin/calendar/categories/"+strconv.FormatInt(c.ID, 10), "", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminOptions(t *testing.T) {
	m, _ := testModule(t, newUsers(
		calendar.User{ID: 1, GivenName: "Zoe", Surname: "Adams"},
		calendar.User{ID: 2, GivenName: "Anna", Surname: "Zimmer"},
	))
	h := testRouter(m)

	rec := do(t, h, http.MethodGet, "/admin/calendar/options/days?month=2&year=2024", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]calendar.Option](t, rec), 29)

	rec = do(t, h, http.MethodGet, "/admin/calendar/options/days", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []calendar.Option{{Value: 0, Label: calendar.PickMonthAndYear}}, decodeBody[[]calendar.Option](t, rec))

	rec = do(t, h, http.MethodGet, "/admin/calendar/options/days?month=13&year=2024", "", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/admin/calendar/options/months", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]calendar.Option](t, rec), 12)

	rec = do(t, h, http.MethodGet, "/admin/calendar/options/years", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	years := decodeBody[[]calendar.Option](t, rec)
	require.Len(t, years, 6)
	assert.Equal(t, int64(2025), years[0].Value)

	rec = do(t, h, http.MethodGet, "/admin/calendar/options/users", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []calendar.Option{
		{Value: 1, Label: "Adams, Zoe"},
		{Value: 2, Label: "Zimmer, Anna"},
	}, decodeBody[[]calendar.Option](t, rec))
}

func TestAdminUserOptionsWithoutDirectory(t *testing.T) {
	m, _ := testModule(t)
	rec := do(t, testRouter(m), http.MethodGet, "/admin/calendar/options/users", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []calendar.Option{{Value: 0, Label: calendar.UserDirectoryMissing}}, decodeBody[[]calendar.Option](t, rec))
}

func TestAdminSettings(t *testing.T) {
	m, _ := testModule(t)
	h := testRouter(m)

	rec := do(t, h, http.MethodGet, "/admin/calendar/settings", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	s := decodeBody[Settings](t, rec)
	assert.Equal(t, "g:i a", s.TimeFormat)
	assert.Equal(t, 30, s.PastDays)

	rec = do(t, h, http.MethodPut, "/admin/calendar/settings",
		`{"time_format":"H:i","past_days":7,"future_days":60,"public_permissions":[1,2],"deny_permission":9}`, 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/admin/calendar/settings", "", 1)
	s = decodeBody[Settings](t, rec)
	assert.Equal(t, "H:i", s.TimeFormat)
	assert.Equal(t, []calendar.PermissionID{1, 2}, s.PublicPermissions)
	assert.Equal(t, calendar.PermissionID(9), s.DenyPermission)

	rec = do(t, h, http.MethodPut, "/admin/calendar/settings", `{"time_format":"H:i","past_days":-3}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "past_days", decodeBody[handler.ErrorResponse](t, rec).Field)

	rec = do(t, h, http.MethodPut, "/admin/calendar/settings", `{"time_format":""}`, 1)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodDelete, "/admin/calendar/settings", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "g:i a", decodeBody[Settings](t, rec).TimeFormat)
}

func TestAdminLegacyImportDisabled(t *testing.T) {
	m, _ := testModule(t)
	rec := do(t, testRouter(m), http.MethodPost, "/admin/calendar/import/legacy", "", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
