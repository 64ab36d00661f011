// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package members provides site members: sign-in through sessions, the user
// directory the calendar resolves owner names and user options from, and
// the admin flag guarding the admin API.
package members

import (
	"context"
	"database/sql"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/middleware"
	"github.com/olegiv/ocms-calendar/internal/module"
)

// ModuleName is the registry name of the module.
const ModuleName = "members"

// Module implements module.Module and calendar.UserDirectory.
type Module struct {
	module.BaseModule
	ctx        *module.Context
	sessions   *scs.SessionManager
	protection *middleware.LoginProtection
}

// New creates the members module. Sign-in state is kept in sessions.
func New(sessions *scs.SessionManager) *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			ModuleName,
			"1.0.0",
			"Site members, sign-in and the user directory",
		),
		sessions:   sessions,
		protection: middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig()),
	}
}

// Init initializes the module with the given context.
func (m *Module) Init(ctx *module.Context) error {
	m.ctx = ctx

	if err := m.bootstrapAdmin(context.Background()); err != nil {
		return err
	}

	if ctx.Scheduler != nil {
		err := ctx.Scheduler.Add(ModuleName, "prune_lockouts", "Forget expired login lockouts", "@every 10m",
			func(context.Context) error {
				if n := m.protection.Prune(); n > 0 {
					m.ctx.Logger.Debug("pruned login attempts", "count", n)
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	m.ctx.Logger.Info("Members module initialized")
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
	r.With(m.protection.Middleware).Post("/auth/login", m.handleLogin)
	r.Post("/auth/logout", m.handleLogout)
	r.With(middleware.RequireUser).Get("/auth/me", m.handleMe)
}

// RegisterAdminRoutes registers admin routes for the module.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Get("/members", m.handleAdminList)
	r.Post("/members", m.handleAdminCreate)
	r.Delete("/members/{id}", m.handleAdminDelete)
}

// Migrations returns database migrations for the module.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Create members table",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS members (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						given_name TEXT NOT NULL,
						surname TEXT NOT NULL,
						email TEXT NOT NULL UNIQUE,
						password_hash TEXT NOT NULL,
						is_admin BOOLEAN NOT NULL DEFAULT 0,
						last_login_at DATETIME,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					);
					CREATE INDEX IF NOT EXISTS idx_members_surname ON members(surname, given_name);
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS members`)
				return err
			},
		},
	}
}

// bootstrapAdmin creates the configured administrator when no member exists.
func (m *Module) bootstrapAdmin(ctx context.Context) error {
	cfg := m.ctx.Config
	if cfg == nil || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	n, err := m.count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	_, err = m.create(ctx, CreateParams{
		GivenName: "Site",
		Surname:   "Administrator",
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
		IsAdmin:   true,
	})
	if err != nil {
		return err
	}
	m.ctx.Logger.Info("created initial administrator", "email", cfg.AdminEmail)
	return nil
}
