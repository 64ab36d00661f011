// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "store-test.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	for _, table := range []string{"sessions", "settings", "audit_log"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestDSNCarriesPragmas(t *testing.T) {
	got := dsn("/tmp/x.db")
	if !strings.HasPrefix(got, "file:/tmp/x.db?") {
		t.Errorf("dsn = %q, want file: prefix", got)
	}
	if !strings.Contains(got, "foreign_keys%281%29") {
		t.Errorf("dsn = %q, want foreign_keys pragma", got)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	var on int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}
}

func TestSettings(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	if _, err := q.GetSetting(ctx, "time_format"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("GetSetting on empty table = %v, want sql.ErrNoRows", err)
	}

	got, err := q.GetSettingOr(ctx, "time_format", "g:i a")
	if err != nil {
		t.Fatalf("GetSettingOr: %v", err)
	}
	if got != "g:i a" {
		t.Errorf("GetSettingOr = %q, want default", got)
	}

	if err := q.SetSetting(ctx, "time_format", "H:i"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := q.SetSetting(ctx, "time_format", "G:i"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}

	got, err = q.GetSetting(ctx, "time_format")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != "G:i" {
		t.Errorf("GetSetting = %q, want G:i", got)
	}

	if err := q.DeleteSetting(ctx, "time_format"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if _, err := q.GetSetting(ctx, "time_format"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetSetting after delete = %v, want sql.ErrNoRows", err)
	}
}

func TestAuditLog(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	base := time.Now().Add(-time.Hour)
	for i, msg := range []string{"first", "second", "third"} {
		_, err := q.CreateAuditEntry(ctx, CreateAuditEntryParams{
			Level:     "warning",
			Category:  "calendar",
			Message:   msg,
			Metadata:  "{}",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateAuditEntry: %v", err)
		}
	}

	n, err := q.CountAuditEntries(ctx)
	if err != nil {
		t.Fatalf("CountAuditEntries: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	entries, err := q.ListAuditEntries(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Message != "third" {
		t.Errorf("newest entry = %q, want third", entries[0].Message)
	}

	removed, err := q.DeleteAuditEntriesBefore(ctx, base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("DeleteAuditEntriesBefore: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
