// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package module provides the module system the calendar is assembled from.
// Modules own their tables (via Migrations), register public and admin
// routes, and exchange data through hooks.
package module

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/config"
	"github.com/olegiv/ocms-calendar/internal/scheduler"
	"github.com/olegiv/ocms-calendar/internal/store"
)

// Context provides access to application services for modules.
type Context struct {
	DB        *sql.DB
	Store     *store.Queries
	Logger    *slog.Logger
	Config    *config.Config
	Cache     cache.Cacher
	Hooks     *HookRegistry
	Scheduler *scheduler.Registry
	Registry  *Registry // set by Registry.InitAll
}

// Module defines the interface that all modules must implement.
type Module interface {
	Name() string
	Version() string
	Description() string
	// Dependencies lists modules that must be registered before this one.
	Dependencies() []string

	Init(ctx *Context) error
	Shutdown() error

	// RegisterRoutes registers public routes for the module.
	RegisterRoutes(r chi.Router)
	// RegisterAdminRoutes registers routes mounted under /admin.
	RegisterAdminRoutes(r chi.Router)

	Migrations() []Migration
}

// EnvironmentChecker is an optional interface modules can implement to
// restrict which environments they can run in. A module first seen in a
// disallowed environment is stored as inactive.
type EnvironmentChecker interface {
	AllowedEnvs() []string
}

// Migration represents a database migration for a module.
type Migration struct {
	Version     int64
	Description string
	Up          func(db *sql.DB) error
	Down        func(db *sql.DB) error
}

// BaseModule provides no-op implementations of the Module interface.
type BaseModule struct {
	name        string
	version     string
	description string
	ctx         *Context
}

// NewBaseModule creates a new BaseModule with the given metadata.
func NewBaseModule(name, version, description string) BaseModule {
	return BaseModule{
		name:        name,
		version:     version,
		description: description,
	}
}

func (m *BaseModule) Name() string           { return m.name }
func (m *BaseModule) Version() string        { return m.version }
func (m *BaseModule) Description() string    { return m.description }
func (m *BaseModule) Dependencies() []string { return nil }

// Init stores ctx for later use through Context.
func (m *BaseModule) Init(ctx *Context) error {
	m.ctx = ctx
	return nil
}

func (m *BaseModule) Shutdown() error                  { return nil }
func (m *BaseModule) RegisterRoutes(_ chi.Router)      {}
func (m *BaseModule) RegisterAdminRoutes(_ chi.Router) {}
func (m *BaseModule) Migrations() []Migration          { return nil }

// Context returns the module context (for use by embedded modules).
func (m *BaseModule) Context() *Context { return m.ctx }
