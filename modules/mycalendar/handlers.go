// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/handler"
	"github.com/olegiv/ocms-calendar/internal/middleware"
	"github.com/olegiv/ocms-calendar/modules/mycalendar/legacy"
)

const (
	defaultAdminLimit = 50
	maxAdminLimit     = 500
)

// optionalInt reads an optional integer query parameter.
func optionalInt(r *http.Request, name string) (*int, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	n, err := handler.QueryInt(r, name, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func visibleQuery(r *http.Request) (Query, error) {
	var (
		q   Query
		err error
	)
	if q.Past, err = optionalInt(r, "past"); err != nil {
		return Query{}, err
	}
	if q.Future, err = optionalInt(r, "future"); err != nil {
		return Query{}, err
	}
	return q, nil
}

// handleVisible handles GET /calendar/events.
func (m *Module) handleVisible(w http.ResponseWriter, r *http.Request) {
	q, err := visibleQuery(r)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	views, err := m.Visible(r.Context(), middleware.GetUserID(r), q)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, m.responses(views))
}

// handleVisibleEvent handles GET /calendar/events/{id}.
func (m *Module) handleVisibleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	v, err := m.VisibleEvent(r.Context(), middleware.GetUserID(r), id)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, m.response(v))
}

// handleICS handles GET /calendar/events.ics.
func (m *Module) handleICS(w http.ResponseWriter, r *http.Request) {
	q, err := visibleQuery(r)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	views, err := m.Visible(r.Context(), middleware.GetUserID(r), q)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	_, _ = w.Write([]byte(buildICS(views, m.now())))
}

// Admin: events

// eventInput is the writable part of an event. Read-only keys echoed back
// from a response are ignored.
type eventInput struct {
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Name        string  `json:"name"`
	IsPublished bool    `json:"is_published"`
	OwnerID     int64   `json:"owner_id"`
	CategoryIDs []int64 `json:"category_ids"`
	Excerpt     string  `json:"excerpt"`
	MultiDate   string  `json:"multidate"`
	Excluded    string  `json:"excluded"`
	AllDay      bool    `json:"allday"`
	Thru        string  `json:"thru"`
	Recur       string  `json:"recur"`
}

func (in eventInput) event() (calendar.Event, error) {
	e := calendar.Event{
		Time:        strings.TrimSpace(in.Time),
		Name:        strings.TrimSpace(in.Name),
		IsPublished: in.IsPublished,
		OwnerID:     in.OwnerID,
		Excerpt:     in.Excerpt,
		AllDay:      in.AllDay,
		Recur:       in.Recur,
		Categories:  make([]calendar.Category, 0, len(in.CategoryIDs)),
	}
	if in.OwnerID < 0 {
		return e, &calendar.ValidationError{Field: "owner_id", Message: "must not be negative"}
	}
	if d := strings.TrimSpace(in.Date); d != "" {
		date, err := parseDateInput(d)
		if err != nil {
			return e, err
		}
		e.Date = date
	}
	var err error
	if e.MultiDate, err = optionalDate("multidate", in.MultiDate); err != nil {
		return e, err
	}
	if e.Excluded, err = optionalDate("excluded", in.Excluded); err != nil {
		return e, err
	}
	if e.Thru, err = optionalDate("thru", in.Thru); err != nil {
		return e, err
	}
	for _, id := range in.CategoryIDs {
		e.Categories = append(e.Categories, calendar.Category{ID: id})
	}
	return e, nil
}

type eventPage struct {
	Events []eventResponse `json:"events"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func adminFilter(r *http.Request) (EventFilter, error) {
	var f EventFilter
	query := r.URL.Query()

	var err error
	if f.From, err = optionalDate("from", query.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = optionalDate("to", query.Get("to")); err != nil {
		return f, err
	}
	if raw := query.Get("published"); raw != "" {
		if f.PublishedOnly, err = strconv.ParseBool(raw); err != nil {
			return f, &calendar.FormatError{Field: "published", Value: raw, Reason: "expected a boolean"}
		}
	}
	if raw := query.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, &calendar.FormatError{Field: "category_id", Value: raw, Reason: "expected a positive integer"}
		}
		f.CategoryID = id
	}
	return f, nil
}

// handleListEvents handles GET /admin/calendar/events.
func (m *Module) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := adminFilter(r)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = handler.Pagination(r, defaultAdminLimit, maxAdminLimit); err != nil {
		handler.WriteErr(w, r, err)
		return
	}

	total, err := m.countEvents(r.Context(), f)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	events, err := m.listEvents(r.Context(), f)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	s, err := m.settings(r.Context())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	views := calendar.DeriveAll(r.Context(), events, calendar.DeriveOptions{TimeFormat: s.TimeFormat, Users: m.users()})

	handler.WriteJSON(w, http.StatusOK, eventPage{
		Events: m.responses(views),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
}

func (m *Module) writeEvent(w http.ResponseWriter, r *http.Request, status int, e calendar.Event) {
	s, err := m.settings(r.Context())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	v := calendar.View{Event: e, Attributes: calendar.Derive(r.Context(), e, calendar.DeriveOptions{
		TimeFormat: s.TimeFormat,
		Users:      m.users(),
	})}
	handler.WriteJSON(w, status, m.response(v))
}

// handleGetEvent handles GET /admin/calendar/events/{id}.
func (m *Module) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	e, err := m.getEvent(r.Context(), id)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.writeEvent(w, r, http.StatusOK, e)
}

// handleCreateEvent handles POST /admin/calendar/events.
func (m *Module) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventInput
	if err := handler.DecodeJSONIgnoringUnknown(w, r, &in); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	e, err := in.event()
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if e.OwnerID == 0 {
		e.OwnerID = middleware.GetUserID(r)
	}

	saved, err := m.saveEvent(r.Context(), e)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("event created", "category", "calendar", "event_id", saved.ID, "user_id", middleware.GetUserID(r))
	m.writeEvent(w, r, http.StatusCreated, saved)
}

// handleUpdateEvent handles PUT /admin/calendar/events/{id}.
func (m *Module) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	var in eventInput
	if err := handler.DecodeJSONIgnoringUnknown(w, r, &in); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	e, err := in.event()
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	e.ID = id

	saved, err := m.saveEvent(r.Context(), e)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("event updated", "category", "calendar", "event_id", saved.ID, "user_id", middleware.GetUserID(r))
	m.writeEvent(w, r, http.StatusOK, saved)
}

// handleDeleteEvent handles DELETE /admin/calendar/events/{id}.
func (m *Module) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if err := m.removeEvent(r.Context(), id); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Warn("event deleted", "category", "calendar", "event_id", id, "user_id", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// Admin: categories

type categoryInput struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	PermissionID int64  `json:"permission_id"`
}

func (in categoryInput) category() calendar.Category {
	return calendar.Category{
		Name:         in.Name,
		Slug:         strings.TrimSpace(in.Slug),
		PermissionID: calendar.PermissionID(in.PermissionID),
	}
}

// handleListCategories handles GET /admin/calendar/categories.
func (m *Module) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := m.listCategories(r.Context())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, cats)
}

// handleCreateCategory handles POST /admin/calendar/categories.
func (m *Module) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if err := handler.DecodeJSON(w, r, &in); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	c, err := m.insertCategory(r.Context(), in.category())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("category created", "category", "calendar", "category_id", c.ID, "user_id", middleware.GetUserID(r))
	handler.WriteJSON(w, http.StatusCreated, c)
}

// handleUpdateCategory handles PUT /admin/calendar/categories/{id}.
func (m *Module) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	var in categoryInput
	if err := handler.DecodeJSON(w, r, &in); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	c := in.category()
	c.ID = id
	if c, err = m.updateCategory(r.Context(), c); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.afterWrite(r.Context())
	m.ctx.Logger.Info("category updated", "category", "calendar", "category_id", c.ID, "user_id", middleware.GetUserID(r))
	handler.WriteJSON(w, http.StatusOK, c)
}

// handleDeleteCategory handles DELETE /admin/calendar/categories/{id}.
func (m *Module) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamID(r, "id")
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if err := m.deleteCategory(r.Context(), id); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.afterWrite(r.Context())
	m.ctx.Logger.Warn("category deleted", "category", "calendar", "category_id", id, "user_id", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// Admin: form options

// handleDayOptions handles GET /admin/calendar/options/days?month=&year=.
func (m *Module) handleDayOptions(w http.ResponseWriter, r *http.Request) {
	month, err := handler.QueryInt(r, "month", 0)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	year, err := handler.QueryInt(r, "year", 0)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	opts, err := calendar.DayOptions(month, year)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, opts)
}

// handleMonthOptions handles GET /admin/calendar/options/months.
func (m *Module) handleMonthOptions(w http.ResponseWriter, _ *http.Request) {
	handler.WriteJSON(w, http.StatusOK, calendar.MonthOptions())
}

// handleYearOptions handles GET /admin/calendar/options/years.
func (m *Module) handleYearOptions(w http.ResponseWriter, _ *http.Request) {
	handler.WriteJSON(w, http.StatusOK, calendar.YearOptions(m.now()))
}

// handleUserOptions handles GET /admin/calendar/options/users.
func (m *Module) handleUserOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := calendar.UserOptions(r.Context(), m.users())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, opts)
}

// Admin: settings

// handleGetSettings handles GET /admin/calendar/settings.
func (m *Module) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := m.settings(r.Context())
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, s)
}

// handleUpdateSettings handles PUT /admin/calendar/settings.
func (m *Module) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s Settings
	if err := handler.DecodeJSON(w, r, &s); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if s.PublicPermissions == nil {
		s.PublicPermissions = []calendar.PermissionID{}
	}
	if err := s.Validate(); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	if err := saveSettings(r.Context(), m.ctx.DB, s); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("calendar settings updated", "category", "config", "user_id", middleware.GetUserID(r))
	handler.WriteJSON(w, http.StatusOK, s)
}

// handleResetSettings handles DELETE /admin/calendar/settings.
func (m *Module) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := resetSettings(r.Context(), m.ctx.DB); err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("calendar settings reset", "category", "config", "user_id", middleware.GetUserID(r))
	m.handleGetSettings(w, r)
}

// Admin: legacy import

// handleLegacyImport handles POST /admin/calendar/import/legacy.
func (m *Module) handleLegacyImport(w http.ResponseWriter, r *http.Request) {
	cfg := m.ctx.Config
	if cfg == nil || !cfg.LegacyImportEnabled() {
		handler.WriteError(w, http.StatusNotFound, "legacy import is not configured")
		return
	}

	db, err := legacy.Open(r.Context(), cfg.LegacyDSN)
	if err != nil {
		m.ctx.Logger.Error("legacy database unavailable", "error", err)
		handler.WriteError(w, http.StatusBadGateway, "legacy database unavailable")
		return
	}
	defer func() { _ = db.Close() }()

	reader, err := legacy.NewReader(db, cfg.LegacyPrefix)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	res, err := m.importLegacy(r.Context(), reader)
	if err != nil {
		handler.WriteErr(w, r, err)
		return
	}
	m.ctx.Logger.Info("legacy calendar imported", "category", "calendar",
		"events", res.EventsImported, "skipped", res.EventsSkipped, "user_id", middleware.GetUserID(r))
	handler.WriteJSON(w, http.StatusOK, res)
}
