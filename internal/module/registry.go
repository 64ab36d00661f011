// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Registry manages module registration and lifecycle.
type Registry struct {
	modules      map[string]Module
	order        []string // initialization order
	activeStatus map[string]bool
	ctx          *Context
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules:      make(map[string]Module),
		order:        make([]string, 0),
		activeStatus: make(map[string]bool),
		logger:       logger,
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered", "name", name, "version", m.Version())

	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// List returns all registered modules in registration order.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.modules[name])
	}
	return modules
}

// Lookup returns the first active module, in registration order, that
// implements T. Collaborators such as permission providers are found this way
// so deactivating a module takes effect without a restart.
func Lookup[T any](r *Registry) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	for _, m := range r.List() {
		if !r.IsActive(m.Name()) {
			continue
		}
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// InitAll checks dependencies, runs pending migrations, loads active status
// and then initializes modules in registration order.
func (r *Registry) InitAll(ctx *Context) error {
	r.mu.Lock()
	r.ctx = ctx
	ctx.Registry = r
	r.mu.Unlock()

	if err := r.checkDependencies(); err != nil {
		return err
	}

	if err := r.runAllMigrations(ctx.DB); err != nil {
		return err
	}

	env := ""
	if ctx.Config != nil {
		env = ctx.Config.Env
	}
	if err := r.loadActiveStatus(ctx.DB, env); err != nil {
		return fmt.Errorf("loading module active status: %w", err)
	}

	if ctx.Hooks != nil {
		ctx.Hooks.SetIsModuleActive(r.IsActive)
	}

	for _, name := range r.order {
		m := r.modules[name]
		r.logger.Info("initializing module", "name", name, "active", r.activeStatus[name])

		if err := m.Init(ctx); err != nil {
			return fmt.Errorf("initializing module %q: %w", name, err)
		}
	}

	return nil
}

// checkDependencies verifies that every dependency is registered earlier.
func (r *Registry) checkDependencies() error {
	for i, name := range r.order {
		for _, dep := range r.modules[name].Dependencies() {
			j := slices.Index(r.order, dep)
			if j < 0 {
				return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
			}
			if j > i {
				return fmt.Errorf("module %q depends on %q which is registered after it", name, dep)
			}
		}
	}
	return nil
}

func (r *Registry) runAllMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("ensuring migrations table: %w", err)
	}

	for _, name := range r.order {
		migrations := r.modules[name].Migrations()
		if len(migrations) == 0 {
			continue
		}

		for _, mig := range migrations {
			applied, err := isMigrationApplied(db, name, mig.Version)
			if err != nil {
				return fmt.Errorf("checking migration status for %s v%d: %w", name, mig.Version, err)
			}
			if applied {
				continue
			}

			r.logger.Info("applying migration", "module", name, "version", mig.Version, "description", mig.Description)

			if err := mig.Up(db); err != nil {
				return fmt.Errorf("running migration %s v%d: %w", name, mig.Version, err)
			}
			if _, err := db.Exec(
				"INSERT INTO module_migrations (module, version, applied_at) VALUES (?, ?, ?)",
				name, mig.Version, time.Now().UTC(),
			); err != nil {
				return fmt.Errorf("recording migration %s v%d: %w", name, mig.Version, err)
			}
		}
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS module_migrations (
			module TEXT NOT NULL,
			version INTEGER NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (module, version)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS modules (
			name TEXT PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func isMigrationApplied(db *sql.DB, module string, version int64) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM module_migrations WHERE module = ? AND version = ?",
		module, version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// loadActiveStatus reads is_active for every module. Modules seen for the
// first time are inserted as active unless their EnvironmentChecker excludes
// env.
func (r *Registry) loadActiveStatus(db *sql.DB, env string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		var isActive bool
		err := db.QueryRow("SELECT is_active FROM modules WHERE name = ?", name).Scan(&isActive)
		if errors.Is(err, sql.ErrNoRows) {
			isActive = true
			if ec, ok := r.modules[name].(EnvironmentChecker); ok && !slices.Contains(ec.AllowedEnvs(), env) {
				isActive = false
			}
			if _, err := db.Exec(
				"INSERT INTO modules (name, is_active, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
				name, isActive,
			); err != nil {
				return fmt.Errorf("inserting module %s: %w", name, err)
			}
			r.activeStatus[name] = isActive
			continue
		}
		if err != nil {
			return fmt.Errorf("loading active status for module %s: %w", name, err)
		}
		r.activeStatus[name] = isActive
	}
	return nil
}

// IsActive reports whether a module is active. Unknown modules and modules
// not yet loaded from the database count as active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active, ok := r.activeStatus[name]
	return !ok || active
}

// SetActive persists a module's active status.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; !exists {
		return fmt.Errorf("module %q not registered", name)
	}
	if r.ctx == nil || r.ctx.DB == nil {
		return errors.New("registry not initialized")
	}

	if _, err := r.ctx.DB.Exec(
		"UPDATE modules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?",
		active, name,
	); err != nil {
		return fmt.Errorf("updating module is_active: %w", err)
	}

	r.activeStatus[name] = active
	r.logger.Info("module status changed", "module", name, "active", active)
	return nil
}

// ShutdownAll shuts down all modules in reverse order.
func (r *Registry) ShutdownAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range slices.Backward(r.order) {
		r.logger.Info("shutting down module", "name", name)
		if err := r.modules[name].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutting down module %q: %w", name, err))
			r.logger.Error("module shutdown error", "name", name, "error", err)
		}
	}

	return errors.Join(errs...)
}

// RouteAll mounts every module's public routes behind an active-status check.
func (r *Registry) RouteAll(router chi.Router) {
	r.routeAll(router, Module.RegisterRoutes)
}

// AdminRouteAll mounts every module's admin routes behind an active-status check.
func (r *Registry) AdminRouteAll(router chi.Router) {
	r.routeAll(router, Module.RegisterAdminRoutes)
}

func (r *Registry) routeAll(router chi.Router, register func(Module, chi.Router)) {
	for _, m := range r.List() {
		router.Group(func(sub chi.Router) {
			sub.Use(r.moduleActiveMiddleware(m.Name()))
			register(m, sub)
		})
	}
}

// moduleActiveMiddleware answers 404 for routes of inactive modules.
func (r *Registry) moduleActiveMiddleware(moduleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.IsActive(moduleName) {
				r.logger.Debug("blocked request to inactive module", "module", moduleName, "path", req.URL.Path)
				http.NotFound(w, req)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// Info describes a registered module.
type Info struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	Active            bool   `json:"active"`
	MigrationCount    int    `json:"migration_count"`
	MigrationsApplied int    `json:"migrations_applied"`
}

// ListInfo returns information about all registered modules.
func (r *Registry) ListInfo() []Info {
	r.mu.RLock()
	ctx := r.ctx
	r.mu.RUnlock()

	modules := r.List()
	infos := make([]Info, 0, len(modules))
	for _, m := range modules {
		migrations := m.Migrations()
		applied := 0
		if ctx != nil && ctx.DB != nil {
			for _, mig := range migrations {
				if ok, err := isMigrationApplied(ctx.DB, m.Name(), mig.Version); err == nil && ok {
					applied++
				}
			}
		}
		infos = append(infos, Info{
			Name:              m.Name(),
			Version:           m.Version(),
			Description:       m.Description(),
			Active:            r.IsActive(m.Name()),
			MigrationCount:    len(migrations),
			MigrationsApplied: applied,
		})
	}
	return infos
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
