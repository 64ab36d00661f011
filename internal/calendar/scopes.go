// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import "time"

// Predicate selects events.
type Predicate func(Event) bool

// Published keeps published events.
func Published() Predicate {
	return func(e Event) bool { return e.IsPublished }
}

// PastWithin keeps events dated no earlier than days before today.
func PastWithin(today time.Time, days int) (Predicate, error) {
	if days < 0 {
		return nil, &ValidationError{Field: "past", Message: "day count must not be negative"}
	}
	from := DateOf(today).AddDate(0, 0, -days)
	return func(e Event) bool {
		return !DateOf(e.Date).Before(from)
	}, nil
}

// FutureWithin keeps events dated no later than days after today.
func FutureWithin(today time.Time, days int) (Predicate, error) {
	if days < 0 {
		return nil, &ValidationError{Field: "future", Message: "day count must not be negative"}
	}
	until := DateOf(today).AddDate(0, 0, days)
	return func(e Event) bool {
		return !DateOf(e.Date).After(until)
	}, nil
}

// All combines predicates with logical AND. No predicates keeps everything.
func All(preds ...Predicate) Predicate {
	return func(e Event) bool {
		for _, p := range preds {
			if p != nil && !p(e) {
				return false
			}
		}
		return true
	}
}

// Select returns the events matching all predicates, in input order.
func Select(events []Event, preds ...Predicate) []Event {
	match := All(preds...)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}
