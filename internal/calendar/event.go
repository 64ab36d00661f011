// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package calendar holds the calendar domain: events and their categories,
// the permission-scoped visibility filter, read-time derived attributes,
// date-range scopes and the option lists used by the admin forms.
//
// Everything in this package is a pure function over values supplied by the
// caller. Persistence lives in modules/mycalendar; permission keys and user
// identities come from optional collaborators (PermissionProvider and
// UserDirectory) that may legitimately be absent.
package calendar

import (
	"context"
	"time"
)

// PermissionID identifies a permission key used for access control.
type PermissionID int64

// NoPermission is the unset permission sentinel. A Viewer whose Deny is
// NoPermission denies nothing. Real permission keys start at 1.
const NoPermission PermissionID = 0

// DateLayout is the storage and wire layout for event dates.
const DateLayout = "2006-01-02"

// Category tags an event and carries the permission that gates it.
type Category struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	PermissionID PermissionID `json:"permission_id"`
}

// Event is the stored calendar entry.
type Event struct {
	ID          int64      `json:"id"`
	Date        time.Time  `json:"date"`
	Time        string     `json:"time,omitempty"` // "HH:MM", empty when the event has no time
	Name        string     `json:"name"`
	IsPublished bool       `json:"is_published"`
	OwnerID     int64      `json:"owner_id,omitempty"` // 0 when the event has no owner
	Categories  []Category `json:"categories"`

	Excerpt string `json:"excerpt,omitempty"`

	// Storage-only fields reserved for multi-day and recurring events.
	// Nothing in this package reads them.
	MultiDate *time.Time `json:"multidate,omitempty"`
	Excluded  *time.Time `json:"excluded,omitempty"`
	AllDay    bool       `json:"allday"`
	Thru      *time.Time `json:"thru,omitempty"`
	Recur     string     `json:"recur,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTime reports whether the event carries a time of day.
func (e Event) HasTime() bool {
	return e.Time != ""
}

// CategoryIDs returns the ids of the event's categories in order.
func (e Event) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(e.Categories))
	for _, c := range e.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// Viewer describes who is asking for events.
type Viewer struct {
	UserID  int64          // 0 for anonymous viewers
	Public  []PermissionID // visible to everyone
	Granted []PermissionID // granted to UserID; ignored for anonymous viewers
	Deny    PermissionID   // hides any event tagged with it
}

// Anonymous reports whether the viewer is not signed in.
func (v Viewer) Anonymous() bool {
	return v.UserID == 0
}

// User is a person known to the user-identity collaborator.
type User struct {
	ID        int64  `json:"id"`
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email,omitempty"`
}

// PermissionProvider supplies the permission keys granted to a user.
type PermissionProvider interface {
	GrantedPermissions(ctx context.Context, userID int64) ([]PermissionID, error)
}

// UserDirectory supplies user identities.
type UserDirectory interface {
	LookupUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &FormatError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}
