// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// sqlDate scans DATE columns. SQLite drivers hand them back as time.Time,
// string or []byte depending on the declared type and stored value.
type sqlDate struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (d *sqlDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = sqlDate{}
		return nil
	case time.Time:
		d.Time, d.Valid = calendar.DateOf(v), true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("unsupported date value %T", src)
}

func (d *sqlDate) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = sqlDate{}
		return nil
	}
	t, err := parseDateInput(s)
	if err != nil {
		return err
	}
	d.Time, d.Valid = t, true
	return nil
}

func (d sqlDate) ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

// parseDateInput accepts "YYYY-MM-DD" optionally followed by a time part
// ("2025-06-01T00:00:00Z", "2025-06-01 00:00:00"). The time part is dropped.
func parseDateInput(s string) (time.Time, error) {
	if len(s) > len(calendar.DateLayout) && (s[10] == 'T' || s[10] == ' ') {
		s = s[:len(calendar.DateLayout)]
	}
	return calendar.ParseDate(s)
}

// optionalDate parses an optional date; empty input yields nil.
func optionalDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := parseDateInput(s)
	if err != nil {
		return nil, &calendar.FormatError{Field: field, Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return &t, nil
}

// dateArg formats a date for binding so that stored values compare as text.
func dateArg(t time.Time) string {
	return t.Format(calendar.DateLayout)
}

func optionalDateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dateArg(*t)
}
