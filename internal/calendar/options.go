// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Option is a value/label pair for a select field.
type Option struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// Placeholder labels returned when an option list cannot be built.
const (
	PickMonthAndYear     = "Pick a Month AND Year"
	UserDirectoryMissing = "User directory not installed"
)

// YearSpan is how many years after the current one YearOptions offers.
const YearSpan = 5

// DaysIn returns the number of days in month of year (proleptic Gregorian).
func DaysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayOptions lists the days of month in year. A zero month or year yields
// a single placeholder option.
func DayOptions(month, year int) ([]Option, error) {
	if month < 0 || month > 12 {
		return nil, &ValidationError{Field: "month", Message: fmt.Sprintf("%d is not a month", month)}
	}
	if year < 0 {
		return nil, &ValidationError{Field: "year", Message: "must not be negative"}
	}
	if month == 0 || year == 0 {
		return []Option{{Value: 0, Label: PickMonthAndYear}}, nil
	}

	n := DaysIn(time.Month(month), year)
	opts := make([]Option, 0, n)
	for d := 1; d <= n; d++ {
		opts = append(opts, Option{Value: int64(d), Label: strconv.Itoa(d)})
	}
	return opts, nil
}

// MonthOptions lists the twelve months keyed 1..12.
func MonthOptions() []Option {
	opts := make([]Option, 0, 12)
	for m := time.January; m <= time.December; m++ {
		opts = append(opts, Option{Value: int64(m), Label: m.String()})
	}
	return opts
}

// YearOptions lists now's year through YearSpan years ahead.
func YearOptions(now time.Time) []Option {
	year := now.Year()
	opts := make([]Option, 0, YearSpan+1)
	for y := year; y <= year+YearSpan; y++ {
		opts = append(opts, Option{Value: int64(y), Label: strconv.Itoa(y)})
	}
	return opts
}

// UserOptions lists users as "surname, given name" ordered by surname then
// given name. A nil directory yields a single placeholder option.
func UserOptions(ctx context.Context, users UserDirectory) ([]Option, error) {
	if users == nil {
		return []Option{{Value: 0, Label: UserDirectoryMissing}}, nil
	}

	list, err := users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(list, func(a, b User) int {
		if c := col.CompareString(a.Surname, b.Surname); c != 0 {
			return c
		}
		return col.CompareString(a.GivenName, b.GivenName)
	})

	opts := make([]Option, 0, len(list))
	for _, u := range list {
		opts = append(opts, Option{Value: u.ID, Label: u.Surname + ", " + u.GivenName})
	}
	return opts, nil
}
