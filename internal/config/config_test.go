// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"slices"
	"testing"
)

const testSecret = "test-Secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "MYCAL_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/mycalendar.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/mycalendar.db")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.TimeFormat != "g:i a" {
		t.Errorf("TimeFormat = %q, want %q", cfg.TimeFormat, "g:i a")
	}
	if cfg.DenyPermission != 0 {
		t.Errorf("DenyPermission = %d, want 0", cfg.DenyPermission)
	}
	if !slices.Equal(cfg.Modules, []string{"members", "passage"}) {
		t.Errorf("Modules = %v, want [members passage]", cfg.Modules)
	}
	if len(cfg.PublicPermissions) != 0 {
		t.Errorf("PublicPermissions = %v, want empty", cfg.PublicPermissions)
	}
	if cfg.LegacyImportEnabled() {
		t.Error("LegacyImportEnabled() = true, want false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "MYCAL_SESSION_SECRET", testSecret)
	setEnv(t, "MYCAL_SERVER_HOST", "0.0.0.0")
	setEnv(t, "MYCAL_SERVER_PORT", "3000")
	setEnv(t, "MYCAL_ENV", "production")
	setEnv(t, "MYCAL_MODULES", "members")
	setEnv(t, "MYCAL_PUBLIC_PERMISSIONS", "1,4")
	setEnv(t, "MYCAL_DENY_PERMISSION", "9")
	setEnv(t, "MYCAL_TIME_FORMAT", "H:i")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want 0.0.0.0:3000", cfg.ServerAddr())
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if !cfg.ModuleEnabled("members") || cfg.ModuleEnabled("passage") {
		t.Errorf("Modules = %v, want only members", cfg.Modules)
	}
	if !slices.Equal(cfg.PublicPermissions, []int64{1, 4}) {
		t.Errorf("PublicPermissions = %v, want [1 4]", cfg.PublicPermissions)
	}
	if cfg.DenyPermission != 9 {
		t.Errorf("DenyPermission = %d, want 9", cfg.DenyPermission)
	}
	if cfg.TimeFormat != "H:i" {
		t.Errorf("TimeFormat = %q, want H:i", cfg.TimeFormat)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Error("Load() should fail without MYCAL_SESSION_SECRET")
	}
}

func TestLoad_ShortSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "MYCAL_SESSION_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Error("Load() should fail with a short secret")
	}
}

func TestLoad_WeakSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "MYCAL_SESSION_SECRET", "change-me-to-32-byte-secret-key!")
	if _, err := Load(); err == nil {
		t.Error("Load() should reject a known default secret")
	}
}

func TestLoad_NegativeWindow(t *testing.T) {
	os.Clearenv()
	setEnv(t, "MYCAL_SESSION_SECRET", testSecret)
	setEnv(t, "MYCAL_PAST_DAYS", "-1")
	if _, err := Load(); err == nil {
		t.Error("Load() should reject a negative past window")
	}
}

func TestUseRedisCache(t *testing.T) {
	if (Config{}).UseRedisCache() {
		t.Error("UseRedisCache() = true for empty URL")
	}
	if !(Config{RedisURL: "redis://localhost:6379/0"}).UseRedisCache() {
		t.Error("UseRedisCache() = false for configured URL")
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"aaaaAAAA1111aaaaAAAA1111aaaaAAAA", true},
		{"abc123!!abc123!!abc123!!abc123!!", true},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.in); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
