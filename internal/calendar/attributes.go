// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeFormat renders times like "3:04 pm".
const DefaultTimeFormat = "g:i a"

// Attributes are computed from an Event on read and never stored.
type Attributes struct {
	Day              int       `json:"day"`
	Month            int       `json:"month"`
	Year             int       `json:"year"`
	HasCombinedTime  bool      `json:"has_time"`
	CombinedTime     time.Time `json:"combined_time,omitzero"`
	FormattedTime    string    `json:"human_time"`
	OwnerDisplayName string    `json:"owner_name"`

	// TimeErr is set when the stored time could not be parsed.
	TimeErr error `json:"-"`
}

// DeriveOptions configures Derive.
type DeriveOptions struct {
	TimeFormat string        // PHP-style pattern, DefaultTimeFormat when empty
	Users      UserDirectory // optional
}

// View pairs a stored event with its derived attributes.
type View struct {
	Event
	Attributes
}

// Record returns the stored part of the view.
func (v View) Record() Event {
	return v.Event
}

// CombineTime overwrites the hour and minute of date with hhmm.
// It returns ok=false when hhmm is empty.
func CombineTime(date time.Time, hhmm string) (combined time.Time, ok bool, err error) {
	if hhmm == "" {
		return time.Time{}, false, nil
	}
	hour, minute, err := parseClock(hhmm)
	if err != nil {
		return time.Time{}, false, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), true, nil
}

// NormalizeTime rewrites an accepted clock value as "HH:MM" so stored times
// sort as text. Empty stays empty.
func NormalizeTime(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	hour, minute, err := parseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// parseClock accepts "H:MM" and "HH:MM". A trailing ":SS" is tolerated
// because SQL TIME columns carry seconds.
func parseClock(s string) (hour, minute int, err error) {
	bad := &FormatError{Field: "time", Value: s, Reason: "expected HH:MM"}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, bad
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, bad
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, bad
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, bad
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || len(parts[2]) != 2 || sec < 0 || sec > 59 {
			return 0, 0, bad
		}
	}
	return hour, minute, nil
}

// Derive computes the read-time attributes of e.
func Derive(ctx context.Context, e Event, opts DeriveOptions) Attributes {
	a := Attributes{
		Day:   e.Date.Day(),
		Month: int(e.Date.Month()),
		Year:  e.Date.Year(),
	}

	combined, ok, err := CombineTime(e.Date, e.Time)
	switch {
	case err != nil:
		a.TimeErr = err
	case ok:
		a.HasCombinedTime = true
		a.CombinedTime = combined
		pattern := opts.TimeFormat
		if pattern == "" {
			pattern = DefaultTimeFormat
		}
		a.FormattedTime = FormatTime(combined, pattern)
	}

	a.OwnerDisplayName = ownerDisplayName(ctx, e.OwnerID, opts.Users)
	return a
}

// DeriveAll derives attributes for every event, keeping order.
func DeriveAll(ctx context.Context, events []Event, opts DeriveOptions) []View {
	views := make([]View, 0, len(events))
	for _, e := range events {
		views = append(views, View{Event: e, Attributes: Derive(ctx, e, opts)})
	}
	return views
}

func ownerDisplayName(ctx context.Context, ownerID int64, users UserDirectory) string {
	if users == nil || ownerID == 0 {
		return ""
	}
	u, err := users.LookupUser(ctx, ownerID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Surname + " " + u.GivenName)
}
