// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mycalendar stores calendar events and categories and serves the
// visible, date-bounded listing to site visitors. Which categories a viewer
// may see comes from a calendar.PermissionProvider and owner names from a
// calendar.UserDirectory, both looked up among the active modules.
package mycalendar

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/module"
)

// ModuleName is the registry name of the module.
const ModuleName = "mycalendar"

// defaultEventsTTL applies when the config carries no cache TTL.
const defaultEventsTTL = 15 * time.Minute

// Module implements module.Module.
type Module struct {
	module.BaseModule
	ctx    *module.Context
	events *cache.TypedCache[[]calendar.Event]
	now    func() time.Time

	// generation is bumped on every write and is part of each listing key.
	generation atomic.Uint64
}

// New creates a new instance of the calendar module.
func New() *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			ModuleName,
			"1.2.0",
			"Calendar events with permission-scoped visibility",
		),
		now: time.Now,
	}
}

// Init initializes the module with the given context.
func (m *Module) Init(ctx *module.Context) error {
	m.ctx = ctx

	ttl := defaultEventsTTL
	if ctx.Config != nil && ctx.Config.CacheTTL > 0 {
		ttl = time.Duration(ctx.Config.CacheTTL) * time.Second
	}
	if ctx.Cache != nil {
		m.events = cache.NewTypedCache[[]calendar.Event](ctx.Cache, "mycalendar:events:", ttl)
	}

	if ctx.Scheduler != nil {
		err := ctx.Scheduler.Add(ModuleName, "flush_events", "Drop cached event listings", "*/15 * * * *",
			func(ctx context.Context) error { return m.invalidateEvents(ctx) })
		if err != nil {
			return err
		}
	}

	if ctx.Config != nil && ctx.Config.DoSeed {
		if err := m.seedDemo(context.Background()); err != nil {
			return err
		}
	}

	m.ctx.Logger.Info("Calendar module initialized")
	return nil
}

// Shutdown performs cleanup when the module is shutting down.
func (m *Module) Shutdown() error {
	if m.ctx != nil && m.ctx.Scheduler != nil {
		m.ctx.Scheduler.Remove(ModuleName)
	}
	return nil
}

// RegisterRoutes registers public routes for the module.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Get("/calendar/events", m.handleVisible)
	r.Get("/calendar/events.ics", m.handleICS)
	r.Get("/calendar/events/{id}", m.handleVisibleEvent)
}

// RegisterAdminRoutes registers admin routes for the module.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Get("/events", m.handleListEvents)
		r.Post("/events", m.handleCreateEvent)
		r.Get("/events/{id}", m.handleGetEvent)
		r.Put("/events/{id}", m.handleUpdateEvent)
		r.Delete("/events/{id}", m.handleDeleteEvent)

		r.Get("/categories", m.handleListCategories)
		r.Post("/categories", m.handleCreateCategory)
		r.Put("/categories/{id}", m.handleUpdateCategory)
		r.Delete("/categories/{id}", m.handleDeleteCategory)

		r.Get("/options/days", m.handleDayOptions)
		r.Get("/options/months", m.handleMonthOptions)
		r.Get("/options/years", m.handleYearOptions)
		r.Get("/options/users", m.handleUserOptions)

		r.Get("/settings", m.handleGetSettings)
		r.Put("/settings", m.handleUpdateSettings)
		r.Delete("/settings", m.handleResetSettings)

		r.Post("/import/legacy", m.handleLegacyImport)
	})
}

func (m *Module) permissions() calendar.PermissionProvider {
	p, ok := module.Lookup[calendar.PermissionProvider](m.ctx.Registry)
	if !ok {
		return nil
	}
	return p
}

func (m *Module) users() calendar.UserDirectory {
	u, ok := module.Lookup[calendar.UserDirectory](m.ctx.Registry)
	if !ok {
		return nil
	}
	return u
}

func (m *Module) invalidateEvents(ctx context.Context) error {
	if m.events == nil {
		return nil
	}
	return m.events.Invalidate(ctx)
}
