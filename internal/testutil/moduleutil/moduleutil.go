// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduleutil provides module-specific test helpers.
package moduleutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/config"
	"github.com/olegiv/ocms-calendar/internal/module"
	"github.com/olegiv/ocms-calendar/internal/scheduler"
	"github.com/olegiv/ocms-calendar/internal/store"
	"github.com/olegiv/ocms-calendar/internal/testutil"
)

// RunMigrations runs all migrations up for the given module.
func RunMigrations(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for _, mig := range migrations {
		if err := mig.Up(db); err != nil {
			t.Fatalf("migration %d up: %v", mig.Version, err)
		}
	}
}

// RunMigrationsDown rolls back all migrations in reverse order.
func RunMigrationsDown(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(db); err != nil {
			t.Fatalf("migration %d down: %v", migrations[i].Version, err)
		}
	}
}

// AssertMigrations checks the migration count and that versions start at 1,
// increase by one and carry both directions.
func AssertMigrations(t *testing.T, migrations []module.Migration, want int) {
	t.Helper()
	if len(migrations) != want {
		t.Fatalf("len(Migrations()) = %d, want %d", len(migrations), want)
	}
	for i, mig := range migrations {
		if mig.Version != int64(i+1) {
			t.Errorf("migration %d has version %d, want %d", i, mig.Version, i+1)
		}
		if mig.Description == "" {
			t.Errorf("migration %d has no description", mig.Version)
		}
		if mig.Up == nil || mig.Down == nil {
			t.Errorf("migration %d is missing Up or Down", mig.Version)
		}
	}
}

// TestConfig returns a Config with the same defaults Load applies.
func TestConfig() *config.Config {
	return &config.Config{
		Env:          "development",
		TimeFormat:   "g:i a",
		PastDays:     30,
		FutureDays:   365,
		CachePrefix:  "mycal:",
		CacheTTL:     900,
		LegacyPrefix: "kurtjensen_mycal_",
	}
}

// TestModuleContext creates a module.Context backed by db and a memory cache.
// Returns the context and the hooks registry for verifying hook behavior.
func TestModuleContext(t *testing.T, db *sql.DB) (*module.Context, *module.HookRegistry) {
	t.Helper()
	logger := testutil.TestLogger()
	hooks := module.NewHookRegistry(logger)
	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	q := store.New(db)

	return &module.Context{
		DB:        db,
		Store:     q,
		Logger:    logger,
		Config:    TestConfig(),
		Cache:     c,
		Hooks:     hooks,
		Scheduler: scheduler.New(q, logger),
	}, hooks
}

// InitModules registers modules in a fresh registry and runs InitAll, which
// applies their migrations. It returns the shared context.
func InitModules(t *testing.T, db *sql.DB, modules ...module.Module) *module.Context {
	t.Helper()
	ctx, _ := TestModuleContext(t, db)
	reg := module.NewRegistry(ctx.Logger)
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.Name(), err)
		}
	}
	if err := reg.InitAll(ctx); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	t.Cleanup(func() { _ = reg.ShutdownAll() })
	return ctx
}
