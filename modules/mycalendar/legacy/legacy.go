// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package legacy reads events and categories from an October CMS MyCalendar
// database so they can be imported.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DefaultPrefix is the table prefix of the October CMS plugin.
const DefaultPrefix = "kurtjensen_mycal_"

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Category is a legacy category row.
type Category struct {
	ID           int64
	Name         string
	Slug         string
	PermissionID int64
}

// Event is a legacy event row with the ids of its categories.
type Event struct {
	ID          int64
	Date        time.Time
	Time        string // "HH:MM", empty when unset
	Name        string
	IsPublished bool
	OwnerID     int64
	Excerpt     string
	MultiDate   *time.Time
	Excluded    *time.Time
	AllDay      bool
	Thru        *time.Time
	Recur       string
	CategoryIDs []int64
}

// Open connects to a MySQL legacy database. Dates are parsed into
// time.Time values.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing legacy DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("opening legacy database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to legacy database %s: %w", cfg.Addr, err)
	}
	return db, nil
}

// Reader reads the plugin tables.
type Reader struct {
	db     *sql.DB
	prefix string
}

// NewReader creates a Reader for tables named with prefix.
func NewReader(db *sql.DB, prefix string) (*Reader, error) {
	if !validPrefix.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	return &Reader{db: db, prefix: prefix}, nil
}

func (r *Reader) table(name string) string {
	return r.prefix + name
}

// Categories returns every category ordered by id.
func (r *Reader) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, permission_id FROM `+r.table("categorys")+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying legacy categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []Category
	for rows.Next() {
		var (
			c    Category
			slug sql.NullString
			perm sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &slug, &perm); err != nil {
			return nil, err
		}
		c.Slug = slug.String
		c.PermissionID = perm.Int64
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Events returns every event ordered by id, with category ids attached.
func (r *Reader) Events(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, time, name, is_published, user_id,
			excerpt, multidate, excluded, allday, thru, recur
		FROM `+r.table("events")+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying legacy events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		events []Event
		index  = map[int64]int{}
	)
	for rows.Next() {
		var (
			e                               Event
			date, multidate, excluded, thru any
			clock, excerpt, recur           sql.NullString
			published                       sql.NullBool
			owner, allday                   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &date, &clock, &e.Name, &published, &owner,
			&excerpt, &multidate, &excluded, &allday, &thru, &recur); err != nil {
			return nil, err
		}

		d, err := toDate(date)
		if err != nil || d == nil {
			return nil, fmt.Errorf("legacy event %d: bad date %v", e.ID, date)
		}
		e.Date = *d
		e.Time = normalizeClock(clock.String)
		e.IsPublished = published.Bool
		e.OwnerID = owner.Int64
		e.Excerpt = excerpt.String
		e.AllDay = allday.Int64 != 0
		e.Recur = recur.String
		for _, f := range []struct {
			dst **time.Time
			src any
		}{{&e.MultiDate, multidate}, {&e.Excluded, excluded}, {&e.Thru, thru}} {
			if *f.dst, err = toDate(f.src); err != nil {
				return nil, fmt.Errorf("legacy event %d: %w", e.ID, err)
			}
		}

		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.db.QueryContext(ctx,
		`SELECT event_id, category_id FROM `+r.table("categorys_events")+` ORDER BY event_id, category_id`)
	if err != nil {
		return nil, fmt.Errorf("querying legacy category links: %w", err)
	}
	defer func() { _ = links.Close() }()
	for links.Next() {
		var eventID, categoryID int64
		if err := links.Scan(&eventID, &categoryID); err != nil {
			return nil, err
		}
		if i, ok := index[eventID]; ok {
			events[i].CategoryIDs = append(events[i].CategoryIDs, categoryID)
		}
	}
	return events, links.Err()
}

// normalizeClock drops the seconds MySQL TIME columns carry.
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04:05") && strings.Count(s, ":") == 2 {
		return s[:len("15:04")]
	}
	return s
}

func toDate(v any) (*time.Time, error) {
	var s string
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		d := time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC)
		return &d, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return nil, fmt.Errorf("unsupported date value %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil, nil
	}
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("bad date %q", s)
	}
	return &d, nil
}
