// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package passage provides permission keys ("passage keys") and their grants
// to members. The calendar consults it to decide which categories a signed-in
// viewer may see; without it every event is visible.
package passage

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/module"
)

// ModuleName is the registry name of the module.
const ModuleName = "passage"

// defaultGrantTTL applies when the config carries no cache TTL.
const defaultGrantTTL = 15 * time.Minute

// Module implements module.Module and calendar.PermissionProvider.
type Module struct {
	module.BaseModule
	ctx    *module.Context
	grants *cache.TypedCache[[]calendar.PermissionID]
}

// New creates a new instance of the passage module.
func New() *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			ModuleName,
			"1.0.0",
			"Permission keys granted to members",
		),
	}
}

// Init initializes the module with the given context.
func (m *Module) Init(ctx *module.Context) error {
	m.ctx = ctx

	ttl := defaultGrantTTL
	if ctx.Config != nil && ctx.Config.CacheTTL > 0 {
		ttl = time.Duration(ctx.Config.CacheTTL) * time.Second
	}
	if ctx.Cache != nil {
		m.grants = cache.NewTypedCache[[]calendar.PermissionID](ctx.Cache, "passage:grants:", ttl)
	}

	if ctx.Scheduler != nil {
		err := ctx.Scheduler.Add(ModuleName, "refresh_grants", "Drop cached permission grants", "@hourly",
			func(ctx context.Context) error { return m.invalidateAll(ctx) })
		if err != nil {
			return err
		}
	}

	m.ctx.Logger.Info("Passage module initialized")
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
	r.Get("/passage/keys/mine", m.handleMine)
}

// RegisterAdminRoutes registers admin routes for the module.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Get("/passage/keys", m.handleListKeys)
	r.Post("/passage/keys", m.handleCreateKey)
	r.Delete("/passage/keys/{id}", m.handleDeleteKey)
	r.Get("/passage/users/{userID}/keys", m.handleUserKeys)
	r.Put("/passage/users/{userID}/keys/{keyID}", m.handleGrant)
	r.Delete("/passage/users/{userID}/keys/{keyID}", m.handleRevoke)
}

// Migrations returns database migrations for the module.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Create passage keys and grants tables",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS passage_keys (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL UNIQUE,
						description TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					);
					CREATE TABLE IF NOT EXISTS passage_user_keys (
						user_id INTEGER NOT NULL,
						key_id INTEGER NOT NULL REFERENCES passage_keys(id) ON DELETE CASCADE,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (user_id, key_id)
					);
					CREATE INDEX IF NOT EXISTS idx_passage_user_keys_key ON passage_user_keys(key_id);
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`
					DROP TABLE IF EXISTS passage_user_keys;
					DROP TABLE IF EXISTS passage_keys;
				`)
				return err
			},
		},
	}
}
