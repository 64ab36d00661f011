// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/config"
)

// Settings holds the calendar configuration editable at runtime. Values not
// stored fall back to the process configuration.
type Settings struct {
	TimeFormat        string                  `json:"time_format"`
	PastDays          int                     `json:"past_days"`
	FutureDays        int                     `json:"future_days"`
	PublicPermissions []calendar.PermissionID `json:"public_permissions"`
	DenyPermission    calendar.PermissionID   `json:"deny_permission"`
}

// defaultSettings derives settings from the process configuration.
func defaultSettings(cfg *config.Config) Settings {
	s := Settings{
		TimeFormat:        calendar.DefaultTimeFormat,
		PastDays:          30,
		FutureDays:        365,
		PublicPermissions: []calendar.PermissionID{},
	}
	if cfg == nil {
		return s
	}
	if cfg.TimeFormat != "" {
		s.TimeFormat = cfg.TimeFormat
	}
	s.PastDays = cfg.PastDays
	s.FutureDays = cfg.FutureDays
	for _, p := range cfg.PublicPermissions {
		s.PublicPermissions = append(s.PublicPermissions, calendar.PermissionID(p))
	}
	s.DenyPermission = calendar.PermissionID(cfg.DenyPermission)
	return s
}

// Validate checks the settings before they are stored.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.TimeFormat) == "" {
		return &calendar.PrerequisiteError{Missing: []string{"time_format"}}
	}
	if s.PastDays < 0 {
		return &calendar.ValidationError{Field: "past_days", Message: "must not be negative"}
	}
	if s.FutureDays < 0 {
		return &calendar.ValidationError{Field: "future_days", Message: "must not be negative"}
	}
	if s.DenyPermission < 0 {
		return &calendar.ValidationError{Field: "deny_permission", Message: "must not be negative"}
	}
	for _, p := range s.PublicPermissions {
		if p <= calendar.NoPermission {
			return &calendar.ValidationError{Field: "public_permissions", Message: "permission ids must be positive"}
		}
	}
	return nil
}

// Viewer builds the viewer context for userID (0 for guests).
func (s Settings) Viewer(userID int64) calendar.Viewer {
	return calendar.Viewer{
		UserID: userID,
		Public: slices.Clone(s.PublicPermissions),
		Deny:   s.DenyPermission,
	}
}

func joinPermissions(ids []calendar.PermissionID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(int64(id), 10))
	}
	return strings.Join(parts, ",")
}

func splitPermissions(s string) ([]calendar.PermissionID, error) {
	ids := []calendar.PermissionID{}
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("public_permissions %q: %w", s, err)
		}
		ids = append(ids, calendar.PermissionID(id))
	}
	return ids, nil
}

// loadSettings reads the settings row, filling unset columns from def.
func loadSettings(ctx context.Context, db *sql.DB, def Settings) (Settings, error) {
	var (
		timeFormat string
		past       sql.NullInt64
		future     sql.NullInt64
		public     sql.NullString
		deny       sql.NullInt64
	)
	err := db.QueryRowContext(ctx, `
		SELECT time_format, past_days, future_days, public_permissions, deny_permission
		FROM mycalendar_settings WHERE id = 1
	`).Scan(&timeFormat, &past, &future, &public, &deny)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("scanning calendar settings: %w", err)
	}

	s := def
	if timeFormat != "" {
		s.TimeFormat = timeFormat
	}
	if past.Valid {
		s.PastDays = int(past.Int64)
	}
	if future.Valid {
		s.FutureDays = int(future.Int64)
	}
	if public.Valid {
		if s.PublicPermissions, err = splitPermissions(public.String); err != nil {
			return Settings{}, err
		}
	}
	if deny.Valid {
		s.DenyPermission = calendar.PermissionID(deny.Int64)
	}
	return s, nil
}

// saveSettings stores every field of s.
func saveSettings(ctx context.Context, db *sql.DB, s Settings) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO mycalendar_settings (id, time_format, past_days, future_days, public_permissions, deny_permission, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			time_format = excluded.time_format,
			past_days = excluded.past_days,
			future_days = excluded.future_days,
			public_permissions = excluded.public_permissions,
			deny_permission = excluded.deny_permission,
			updated_at = excluded.updated_at
	`, s.TimeFormat, s.PastDays, s.FutureDays, joinPermissions(s.PublicPermissions), int64(s.DenyPermission))
	return err
}

// resetSettings removes stored settings so the configuration applies again.
func resetSettings(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DELETE FROM mycalendar_settings WHERE id = 1`)
	return err
}
