// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from MYCAL_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"MYCAL_DB_PATH" envDefault:"./data/mycalendar.db"`
	SessionSecret string `env:"MYCAL_SESSION_SECRET,required"`
	ServerHost    string `env:"MYCAL_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"MYCAL_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"MYCAL_ENV" envDefault:"development"`
	LogLevel      string `env:"MYCAL_LOG_LEVEL" envDefault:"info"`

	// Modules to register at startup. Removing "members" or "passage" runs
	// the calendar without that collaborator.
	Modules []string `env:"MYCAL_MODULES" envSeparator:"," envDefault:"members,passage"`

	// Calendar visibility
	PublicPermissions []int64 `env:"MYCAL_PUBLIC_PERMISSIONS" envSeparator:","`
	DenyPermission    int64   `env:"MYCAL_DENY_PERMISSION" envDefault:"0"` // 0 disables the deny rule
	TimeFormat        string  `env:"MYCAL_TIME_FORMAT" envDefault:"g:i a"` // PHP date() pattern
	PastDays          int     `env:"MYCAL_PAST_DAYS" envDefault:"30"`
	FutureDays        int     `env:"MYCAL_FUTURE_DAYS" envDefault:"365"`

	// Cache configuration
	RedisURL     string `env:"MYCAL_REDIS_URL"`                          // Optional Redis URL for distributed caching
	CachePrefix  string `env:"MYCAL_CACHE_PREFIX" envDefault:"mycal:"`   // Redis key prefix
	CacheTTL     int    `env:"MYCAL_CACHE_TTL" envDefault:"900"`         // Default cache TTL in seconds
	CacheMaxSize int    `env:"MYCAL_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Legacy October CMS import (MySQL DSN), empty disables the import endpoint
	LegacyDSN    string `env:"MYCAL_LEGACY_DSN"`
	LegacyPrefix string `env:"MYCAL_LEGACY_PREFIX" envDefault:"kurtjensen_mycal_"`

	DoSeed bool `env:"MYCAL_DO_SEED" envDefault:"false"` // Load demo calendar data

	// First administrator, created by the members module when no member exists
	AdminEmail    string `env:"MYCAL_ADMIN_EMAIL"`
	AdminPassword string `env:"MYCAL_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// ModuleEnabled reports whether the named module is listed in MYCAL_MODULES.
func (c Config) ModuleEnabled(name string) bool {
	return slices.Contains(c.Modules, name)
}

// LegacyImportEnabled returns true if a legacy database is configured.
func (c Config) LegacyImportEnabled() bool {
	return c.LegacyDSN != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("MYCAL_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	if slices.Contains(knownWeakSecrets, cfg.SessionSecret) {
		return nil, fmt.Errorf("MYCAL_SESSION_SECRET is a known default value and must not be used")
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("MYCAL_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.PastDays < 0 || cfg.FutureDays < 0 {
		return nil, fmt.Errorf("MYCAL_PAST_DAYS and MYCAL_FUTURE_DAYS must not be negative")
	}
	if cfg.DenyPermission < 0 {
		return nil, fmt.Errorf("MYCAL_DENY_PERMISSION must not be negative")
	}
	if strings.TrimSpace(cfg.TimeFormat) == "" {
		cfg.TimeFormat = "g:i a"
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
