// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	RedisURL        string // empty selects the memory backend
	Prefix          string
	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration

	// FallbackToMemory uses the memory backend when Redis is unreachable.
	FallbackToMemory bool
}

// Info describes the backend New selected.
type Info struct {
	Backend  string `json:"backend"` // "memory" or "redis"
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// New creates the configured cache backend.
func New(cfg Config, logger *slog.Logger) (Cacher, Info, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			logger.Info("using redis cache", "url", SanitizeRedisURL(cfg.RedisURL), "prefix", cfg.Prefix)
			return rc, Info{Backend: "redis"}, nil
		}
		if !cfg.FallbackToMemory {
			return nil, Info{Backend: "redis", Error: err.Error()}, err
		}
		logger.Warn("redis cache unavailable, falling back to memory cache",
			"category", "cache", "url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return newMemory(cfg), Info{Backend: "memory", Fallback: true, Error: err.Error()}, nil
	}

	return newMemory(cfg), Info{Backend: "memory"}, nil
}

func newMemory(cfg Config) *MemoryCache {
	cleanup := cfg.CleanupInterval
	if cleanup == 0 {
		cleanup = time.Minute
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cleanup,
	})
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
