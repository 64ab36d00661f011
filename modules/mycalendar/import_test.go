// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/testutil"
	"github.com/olegiv/ocms-calendar/modules/mycalendar/legacy"
)

func TestImportLegacy(t *testing.T) {
	m, _ := testModule(t, newUsers(calendar.User{ID: 5, GivenName: "Local", Surname: "Member"}))
	ctx := context.Background()
	existing := mustCategory(t, m, "Public", 1)

	src := testutil.TestMemoryDB(t)
	testutil.Exec(t, src,
		`CREATE TABLE old_categorys (id INTEGER PRIMARY KEY, name TEXT, slug TEXT, permission_id INTEGER)`,
		`CREATE TABLE old_events (
			id INTEGER PRIMARY KEY, date DATE, time TEXT, name TEXT, is_published INTEGER, user_id INTEGER,
			excerpt TEXT, multidate DATE, excluded DATE, allday INTEGER, thru DATE, recur TEXT)`,
		`CREATE TABLE old_categorys_events (event_id INTEGER, category_id INTEGER)`,
		`INSERT INTO old_categorys VALUES (1, 'Public', 'public', 1), (2, 'Staff Room', 'Staff Room', 3)`,
		`INSERT INTO old_events VALUES
			(1, '2025-06-20', '18:30:00', 'Open house', 1, 5, NULL, NULL, NULL, NULL, NULL, NULL),
			(2, '2025-06-21', '9:05', 'Staff lunch', 1, 0, NULL, NULL, NULL, NULL, NULL, NULL),
			(3, '2025-06-22', NULL, '', 1, 0, NULL, NULL, NULL, NULL, NULL, NULL)`,
		`INSERT INTO old_categorys_events VALUES (1, 1), (2, 2), (2, 1)`,
	)
	reader, err := legacy.NewReader(src, "old_")
	require.NoError(t, err)

	res, err := m.importLegacy(ctx, reader)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CategoriesCreated)
	assert.Equal(t, 1, res.CategoriesReused)
	assert.Equal(t, 2, res.EventsImported)
	assert.Equal(t, 1, res.EventsSkipped)
	assert.Len(t, res.Errors, 1)

	cats, err := m.listCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "staff-room", cats[1].Slug, "invalid legacy slugs are regenerated")

	events, err := m.listEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "18:30", events[0].Time)
	assert.Zero(t, events[0].OwnerID, "legacy user ids are not local members")
	assert.Equal(t, "09:05", events[1].Time)
	assert.Equal(t, []int64{existing.ID}, events[0].CategoryIDs())
	assert.Len(t, events[1].Categories, 2)
}
