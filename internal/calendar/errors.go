// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import (
	"fmt"
	"strings"
)

// FormatError reports a stored value that does not match its expected format.
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidationError reports a caller-supplied argument that is out of range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PrerequisiteError reports required fields missing on write.
type PrerequisiteError struct {
	Missing []string
}

func (e *PrerequisiteError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Validate checks the fields an event must carry before it is stored.
func Validate(e Event) error {
	var missing []string
	if e.Date.IsZero() {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(e.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return &PrerequisiteError{Missing: missing}
	}
	if e.HasTime() {
		if _, _, err := parseClock(e.Time); err != nil {
			return err
		}
	}
	return nil
}
