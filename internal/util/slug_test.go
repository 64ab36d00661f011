// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Board Meeting", "board-meeting"},
		{"with special characters", "Open Day!", "open-day"},
		{"with numbers", "Session 12", "session-12"},
		{"with accents", "Café résumé", "cafe-resume"},
		{"german umlauts", "Über München", "uber-munchen"},
		{"cyrillic", "Привет мир", "privet-mir"},
		{"with hyphens", "Choir - Rehearsal", "choir-rehearsal"},
		{"surrounding spaces", "  Picnic  ", "picnic"},
		{"all special characters", "!@#$%^&*()", ""},
		{"empty string", "", ""},
		{"mixed case", "YoUtH ClUb", "youth-club"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"board-meeting", true},
		{"session-12", true},
		{"a", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"Upper", false},
		{"with space", false},
	}
	for _, tt := range tests {
		if got := IsValidSlug(tt.slug); got != tt.valid {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.slug, got, tt.valid)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	used := map[string]bool{"sports": true, "sports-2": true}
	taken := func(s string) (bool, error) { return used[s], nil }

	got, err := UniqueSlug("Sports", "category", taken)
	if err != nil {
		t.Fatalf("UniqueSlug() error: %v", err)
	}
	if got != "sports-3" {
		t.Errorf("UniqueSlug() = %q, want sports-3", got)
	}

	got, err = UniqueSlug("!!!", "category", taken)
	if err != nil {
		t.Fatalf("UniqueSlug() error: %v", err)
	}
	if got != "category" {
		t.Errorf("UniqueSlug() = %q, want category", got)
	}
}

func TestUniqueSlugErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := UniqueSlug("x", "x", func(string) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Errorf("UniqueSlug() error = %v, want boom", err)
	}
	if _, err := UniqueSlug("x", "x", func(string) (bool, error) { return true, nil }); err == nil {
		t.Error("UniqueSlug() should give up when every candidate is taken")
	}
}
