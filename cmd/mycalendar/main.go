// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	_ "github.com/olegiv/ocms-calendar/custom/modules"
	"github.com/olegiv/ocms-calendar/internal/cache"
	"github.com/olegiv/ocms-calendar/internal/config"
	"github.com/olegiv/ocms-calendar/internal/handler"
	"github.com/olegiv/ocms-calendar/internal/logging"
	"github.com/olegiv/ocms-calendar/internal/middleware"
	"github.com/olegiv/ocms-calendar/internal/module"
	"github.com/olegiv/ocms-calendar/internal/scheduler"
	"github.com/olegiv/ocms-calendar/internal/session"
	"github.com/olegiv/ocms-calendar/internal/store"
	"github.com/olegiv/ocms-calendar/internal/version"
	"github.com/olegiv/ocms-calendar/modules/members"
	"github.com/olegiv/ocms-calendar/modules/mycalendar"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// adminChecker is implemented by the module that decides who administers
// the calendar.
type adminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "mycalendar - permission-scoped event calendar\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_SESSION_SECRET      Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_DB_PATH             SQLite database path (default: ./data/mycalendar.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_MODULES             Collaborator modules to enable (default: members,passage)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_PUBLIC_PERMISSIONS  Permission ids visible to everyone, comma separated\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_DENY_PERMISSION     Permission id that hides an event (0 disables)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_REDIS_URL           Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MYCAL_LEGACY_DSN          MySQL DSN of an October CMS database to import from (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Printf("mycalendar %s\n", info)
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewTextLogger(os.Stdout, level)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// From here on WARN and above also land in the audit log.
	logger = slog.New(logging.NewAuditLogHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}), db))
	slog.SetDefault(logger)

	sessionManager := session.New(db, cfg.IsDevelopment())

	cacheBackend, cacheInfo, err := cache.New(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = cacheBackend.Close() }()
	slog.Info("cache initialized", "backend", cacheInfo.Backend, "fallback", cacheInfo.Fallback)

	queries := store.New(db)
	sched := scheduler.New(queries, logger)
	hooks := module.NewHookRegistry(logger)
	registry := module.NewRegistry(logger)

	moduleCtx := &module.Context{
		DB:        db,
		Store:     queries,
		Logger:    logger,
		Config:    cfg,
		Cache:     cacheBackend,
		Hooks:     hooks,
		Scheduler: sched,
	}

	if err := registry.Register(mycalendar.New()); err != nil {
		return fmt.Errorf("registering calendar module: %w", err)
	}
	if cfg.ModuleEnabled(members.ModuleName) {
		if err := registry.Register(members.New(sessionManager)); err != nil {
			return fmt.Errorf("registering members module: %w", err)
		}
	}
	for _, m := range module.CustomModules() {
		if !cfg.ModuleEnabled(m.Name()) {
			slog.Info("custom module disabled by configuration", "name", m.Name())
			continue
		}
		if err := registry.Register(m); err != nil {
			return fmt.Errorf("registering custom module %s: %w", m.Name(), err)
		}
	}

	if err := registry.InitAll(moduleCtx); err != nil {
		return fmt.Errorf("initializing modules: %w", err)
	}
	defer func() {
		if err := registry.ShutdownAll(); err != nil {
			slog.Error("error shutting down modules", "error", err)
		}
	}()
	slog.Info("module system initialized", "modules", registry.Count())

	if err := sched.Add("core", "audit_prune", "Delete audit log entries older than 90 days", "0 3 * * *",
		func(ctx context.Context) error {
			removed, err := queries.DeleteAuditEntriesBefore(ctx, time.Now().AddDate(0, 0, -90))
			if err != nil {
				return fmt.Errorf("pruning audit log: %w", err)
			}
			if removed > 0 {
				slog.Info("audit log pruned", "removed", removed)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("registering audit prune job: %w", err)
	}

	sched.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop(ctx)
	}()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadUser(sessionManager))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())))

	health := handler.NewHealthHandler(db, cacheBackend, info)
	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)

	// Public module routes, rate limited per client IP.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(10, 20))
		registry.RouteAll(r)
	})

	isAdmin := func(ctx context.Context, userID int64) (bool, error) {
		checker, ok := module.Lookup[adminChecker](registry)
		if !ok {
			return false, nil
		}
		return checker.IsAdmin(ctx, userID)
	}
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(isAdmin))
		handler.NewAdminHandler(registry, hooks, queries, cacheBackend).Routes(r)
		handler.NewJobsHandler(sched).Routes(r)
		registry.AdminRouteAll(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
