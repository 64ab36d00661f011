// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"database/sql"

	"github.com/olegiv/ocms-calendar/internal/module"
)

// Migrations returns database migrations for the module.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Create events, categories and their join table",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS mycalendar_categories (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL,
						slug TEXT NOT NULL UNIQUE,
						permission_id INTEGER NOT NULL DEFAULT 0,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					);
					CREATE TABLE IF NOT EXISTS mycalendar_events (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						date DATE NOT NULL,
						time TEXT,
						name TEXT NOT NULL,
						is_published BOOLEAN NOT NULL DEFAULT 0,
						owner_id INTEGER,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					);
					CREATE INDEX IF NOT EXISTS idx_mycalendar_events_date ON mycalendar_events(date);
					CREATE TABLE IF NOT EXISTS mycalendar_categories_events (
						event_id INTEGER NOT NULL REFERENCES mycalendar_events(id) ON DELETE CASCADE,
						category_id INTEGER NOT NULL REFERENCES mycalendar_categories(id) ON DELETE CASCADE,
						PRIMARY KEY (event_id, category_id)
					);
					CREATE INDEX IF NOT EXISTS idx_mycalendar_categories_events_category
						ON mycalendar_categories_events(category_id);
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`
					DROP TABLE IF EXISTS mycalendar_categories_events;
					DROP TABLE IF EXISTS mycalendar_events;
					DROP TABLE IF EXISTS mycalendar_categories;
				`)
				return err
			},
		},
		{
			Version:     2,
			Description: "Add excerpt and multi-day/recurrence storage fields",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					ALTER TABLE mycalendar_events ADD COLUMN excerpt TEXT;
					ALTER TABLE mycalendar_events ADD COLUMN multidate DATE;
					ALTER TABLE mycalendar_events ADD COLUMN excluded DATE;
					ALTER TABLE mycalendar_events ADD COLUMN allday INTEGER;
					ALTER TABLE mycalendar_events ADD COLUMN thru DATE;
					ALTER TABLE mycalendar_events ADD COLUMN recur TEXT;
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`
					ALTER TABLE mycalendar_events DROP COLUMN recur;
					ALTER TABLE mycalendar_events DROP COLUMN thru;
					ALTER TABLE mycalendar_events DROP COLUMN allday;
					ALTER TABLE mycalendar_events DROP COLUMN excluded;
					ALTER TABLE mycalendar_events DROP COLUMN multidate;
					ALTER TABLE mycalendar_events DROP COLUMN excerpt;
				`)
				return err
			},
		},
		{
			Version:     3,
			Description: "Create calendar settings table",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS mycalendar_settings (
						id INTEGER PRIMARY KEY CHECK (id = 1),
						time_format TEXT NOT NULL DEFAULT '',
						past_days INTEGER,
						future_days INTEGER,
						public_permissions TEXT,
						deny_permission INTEGER,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					);
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS mycalendar_settings`)
				return err
			},
		},
	}
}
