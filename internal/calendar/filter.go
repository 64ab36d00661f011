// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import (
	"context"
	"fmt"
)

// Filter returns the events the viewer may see, in input order.
//
// An event is visible when at least one of its categories carries an allowed
// permission and none carries the viewer's deny permission. Allowed
// permissions are the public ones, plus the granted ones for signed-in
// viewers. Events without categories are never visible.
func Filter(events []Event, viewer Viewer) []Event {
	allowed := allowedSet(viewer)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if visible(e, allowed, viewer.Deny) {
			out = append(out, e)
		}
	}
	return out
}

func allowedSet(viewer Viewer) map[PermissionID]struct{} {
	allowed := make(map[PermissionID]struct{}, len(viewer.Public)+len(viewer.Granted))
	for _, p := range viewer.Public {
		allowed[p] = struct{}{}
	}
	if !viewer.Anonymous() {
		for _, p := range viewer.Granted {
			allowed[p] = struct{}{}
		}
	}
	return allowed
}

func visible(e Event, allowed map[PermissionID]struct{}, deny PermissionID) bool {
	permitted := false
	for _, c := range e.Categories {
		if deny != NoPermission && c.PermissionID == deny {
			return false
		}
		if _, ok := allowed[c.PermissionID]; ok {
			permitted = true
		}
	}
	return permitted
}

// AccessFilter applies Filter when a permission provider is installed.
// Without one it passes events through untouched.
type AccessFilter struct {
	perms PermissionProvider
}

// NewAccessFilter creates an AccessFilter. perms may be nil.
func NewAccessFilter(perms PermissionProvider) *AccessFilter {
	return &AccessFilter{perms: perms}
}

// Enabled reports whether filtering is applied.
func (f *AccessFilter) Enabled() bool {
	return f != nil && f.perms != nil
}

// Apply filters events for the viewer. The viewer's granted permissions are
// replaced by the provider's answer for signed-in viewers.
func (f *AccessFilter) Apply(ctx context.Context, events []Event, viewer Viewer) ([]Event, error) {
	if !f.Enabled() {
		return events, nil
	}

	viewer.Granted = nil
	if !viewer.Anonymous() {
		granted, err := f.perms.GrantedPermissions(ctx, viewer.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading granted permissions for user %d: %w", viewer.UserID, err)
		}
		viewer.Granted = granted
	}

	return Filter(events, viewer), nil
}
