// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/util"
	"github.com/olegiv/ocms-calendar/modules/mycalendar/legacy"
)

// ImportResult summarizes a legacy import.
type ImportResult struct {
	CategoriesCreated int      `json:"categories_created"`
	CategoriesReused  int      `json:"categories_reused"`
	EventsImported    int      `json:"events_imported"`
	EventsSkipped     int      `json:"events_skipped"`
	Errors            []string `json:"errors,omitempty"`
}

// importLegacy copies categories and events read by r. Categories whose slug
// already exists are reused; events failing validation are skipped.
func (m *Module) importLegacy(ctx context.Context, r *legacy.Reader) (ImportResult, error) {
	var res ImportResult

	cats, err := r.Categories(ctx)
	if err != nil {
		return res, err
	}
	events, err := r.Events(ctx)
	if err != nil {
		return res, err
	}

	categoryIDs := make(map[int64]calendar.Category, len(cats))
	for _, lc := range cats {
		c, reused, err := m.importCategory(ctx, lc)
		if err != nil {
			return res, fmt.Errorf("importing category %d: %w", lc.ID, err)
		}
		if reused {
			res.CategoriesReused++
		} else {
			res.CategoriesCreated++
		}
		categoryIDs[lc.ID] = c
	}

	// Legacy owners are RainLab user ids, which name no local member, so
	// imported events start without an owner.
	for _, le := range events {
		e := calendar.Event{
			Date:        le.Date,
			Time:        le.Time,
			Name:        le.Name,
			IsPublished: le.IsPublished,
			Excerpt:     le.Excerpt,
			MultiDate:   le.MultiDate,
			Excluded:    le.Excluded,
			AllDay:      le.AllDay,
			Thru:        le.Thru,
			Recur:       le.Recur,
		}
		for _, id := range le.CategoryIDs {
			if c, ok := categoryIDs[id]; ok {
				e.Categories = append(e.Categories, c)
			}
		}

		err := calendar.Validate(e)
		if err == nil {
			e.Time, err = calendar.NormalizeTime(e.Time)
		}
		if err != nil {
			res.EventsSkipped++
			res.Errors = append(res.Errors, fmt.Sprintf("event %d: %v", le.ID, err))
			continue
		}
		if _, err := m.insertEvent(ctx, e); err != nil {
			return res, fmt.Errorf("importing event %d: %w", le.ID, err)
		}
		res.EventsImported++
	}

	m.afterWrite(ctx)
	return res, nil
}

func (m *Module) importCategory(ctx context.Context, lc legacy.Category) (calendar.Category, bool, error) {
	if lc.Slug != "" {
		var id int64
		err := m.ctx.DB.QueryRowContext(ctx, `SELECT id FROM mycalendar_categories WHERE slug = ?`, lc.Slug).Scan(&id)
		switch {
		case err == nil:
			c, err := m.getCategory(ctx, id)
			return c, true, err
		case !errors.Is(err, sql.ErrNoRows):
			return calendar.Category{}, false, err
		}
	}

	c := calendar.Category{Name: lc.Name, PermissionID: calendar.PermissionID(lc.PermissionID)}
	if util.IsValidSlug(lc.Slug) {
		c.Slug = lc.Slug
	}
	c, err := m.insertCategory(ctx, c)
	return c, false, err
}
