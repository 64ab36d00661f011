// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	users []User
}

func (s stubUsers) LookupUser(_ context.Context, id int64) (User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, sql.ErrNoRows
}

func (s stubUsers) ListUsers(_ context.Context) ([]User, error) {
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func TestCombineTime(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	got, ok, err := CombineTime(date, "14:30")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC), got)
}

func TestCombineTimeNoTime(t *testing.T) {
	got, ok, err := CombineTime(time.Now(), "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, got.IsZero())
}

func TestCombineTimeAcceptedForms(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in         string
		hour, mins int
	}{
		{"9:05", 9, 5},
		{"09:05", 9, 5},
		{"00:00", 0, 0},
		{"23:59", 23, 59},
		{"18:45:00", 18, 45},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok, err := CombineTime(date, tt.in)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.hour, got.Hour())
			assert.Equal(t, tt.mins, got.Minute())
		})
	}
}

func TestCombineTimeRejectsMalformed(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"1430", "14-30", "24:00", "12:60", "ab:cd", "1:2", "12:30:7", "123:00", ":30"} {
		t.Run(in, func(t *testing.T) {
			_, ok, err := CombineTime(date, in)
			assert.False(t, ok)
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "time", fe.Field)
		})
	}
}

func TestDeriveDateParts(t *testing.T) {
	e := Event{Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Name: "Leap"}

	a := Derive(context.Background(), e, DeriveOptions{})

	assert.Equal(t, 29, a.Day)
	assert.Equal(t, 2, a.Month)
	assert.Equal(t, 2024, a.Year)
	assert.False(t, a.HasCombinedTime)
	assert.Empty(t, a.FormattedTime)
	assert.Empty(t, a.OwnerDisplayName)
	assert.NoError(t, a.TimeErr)
}

func TestDeriveFormattedTimeDefaultPattern(t *testing.T) {
	e := Event{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Time: "09:05", Name: "Standup"}

	a := Derive(context.Background(), e, DeriveOptions{})

	assert.True(t, a.HasCombinedTime)
	assert.Equal(t, "9:05 am", a.FormattedTime)
}

func TestDeriveFormattedTimeCustomPattern(t *testing.T) {
	e := Event{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Time: "21:40", Name: "Late"}

	a := Derive(context.Background(), e, DeriveOptions{TimeFormat: "H:i"})

	assert.Equal(t, "21:40", a.FormattedTime)
}

func TestDeriveMalformedTimeKeepsOtherFields(t *testing.T) {
	e := Event{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Time: "noon", Name: "Lunch", OwnerID: 1}
	users := stubUsers{users: []User{{ID: 1, GivenName: "Ada", Surname: "Lovelace"}}}

	a := Derive(context.Background(), e, DeriveOptions{Users: users})

	var fe *FormatError
	require.ErrorAs(t, a.TimeErr, &fe)
	assert.False(t, a.HasCombinedTime)
	assert.Empty(t, a.FormattedTime)
	assert.Equal(t, 15, a.Day)
	assert.Equal(t, "Lovelace Ada", a.OwnerDisplayName)
}

func TestDeriveOwnerDisplayName(t *testing.T) {
	users := stubUsers{users: []User{{ID: 4, GivenName: "Grace", Surname: "Hopper"}}}
	base := Event{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Name: "Talk"}

	tests := []struct {
		name    string
		ownerID int64
		users   UserDirectory
		want    string
	}{
		{"known owner", 4, users, "Hopper Grace"},
		{"unknown owner", 5, users, ""},
		{"no owner", 0, users, ""},
		{"no directory", 4, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			e.OwnerID = tt.ownerID
			a := Derive(context.Background(), e, DeriveOptions{Users: tt.users})
			assert.Equal(t, tt.want, a.OwnerDisplayName)
		})
	}
}

func TestDeriveAllKeepsOrderAndRecord(t *testing.T) {
	events := []Event{
		{ID: 2, Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Name: "b", Time: "10:00"},
		{ID: 1, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Name: "a"},
	}

	views := DeriveAll(context.Background(), events, DeriveOptions{})

	require.Len(t, views, 2)
	assert.Equal(t, int64(2), views[0].ID)
	assert.Equal(t, "10:00 am", views[0].FormattedTime)
	assert.Equal(t, events[1], views[1].Record())
}

func TestViewJSONCarriesDerivedFields(t *testing.T) {
	v := View{
		Event:      Event{ID: 1, Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Name: "x", Time: "14:30"},
		Attributes: Derive(context.Background(), Event{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Time: "14:30"}, DeriveOptions{}),
	}

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "2:30 pm", m["human_time"])
	assert.EqualValues(t, 15, m["day"])
	assert.Equal(t, "x", m["name"])
}

func TestValidate(t *testing.T) {
	ok := Event{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Name: "x"}
	require.NoError(t, Validate(ok))

	var pe *PrerequisiteError
	require.ErrorAs(t, Validate(Event{}), &pe)
	assert.Equal(t, []string{"date", "name"}, pe.Missing)

	blank := ok
	blank.Name = "   "
	require.ErrorAs(t, Validate(blank), &pe)
	assert.Equal(t, []string{"name"}, pe.Missing)

	badTime := ok
	badTime.Time = "25:00"
	var fe *FormatError
	require.ErrorAs(t, Validate(badTime), &fe)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"9:05", "09:05"},
		{"09:05", "09:05"},
		{"14:30:00", "14:30"},
		{"0:00", "00:00"},
	}
	for _, tt := range tests {
		got, err := NormalizeTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	var fe *FormatError
	_, err := NormalizeTime("noon")
	require.ErrorAs(t, err, &fe)
}
