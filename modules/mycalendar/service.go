// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/module"
)

// Query bounds a visible listing. Nil windows use the stored settings and a
// zero Today means the current date.
type Query struct {
	Past   *int
	Future *int
	Today  time.Time
}

func (m *Module) settings(ctx context.Context) (Settings, error) {
	return loadSettings(ctx, m.ctx.DB, defaultSettings(m.ctx.Config))
}

func (m *Module) today(q Query) time.Time {
	if !q.Today.IsZero() {
		return calendar.DateOf(q.Today)
	}
	return calendar.DateOf(m.now())
}

// Visible returns the published events within the query window that userID
// (0 for guests) may see, with derived attributes, ordered by date and time.
func (m *Module) Visible(ctx context.Context, userID int64, q Query) ([]calendar.View, error) {
	s, err := m.settings(ctx)
	if err != nil {
		return nil, err
	}

	past, future := s.PastDays, s.FutureDays
	if q.Past != nil {
		past = *q.Past
	}
	if q.Future != nil {
		future = *q.Future
	}

	today := m.today(q)
	pastWithin, err := calendar.PastWithin(today, past)
	if err != nil {
		return nil, err
	}
	futureWithin, err := calendar.FutureWithin(today, future)
	if err != nil {
		return nil, err
	}

	from, to := today.AddDate(0, 0, -past), today.AddDate(0, 0, future)
	events, err := m.publishedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	events = calendar.Select(events, calendar.Published(), pastWithin, futureWithin)

	return m.present(ctx, s, userID, events)
}

// VisibleEvent returns one published event if userID may see it. Hidden
// and unknown events both yield an error wrapping sql.ErrNoRows.
func (m *Module) VisibleEvent(ctx context.Context, userID, id int64) (calendar.View, error) {
	s, err := m.settings(ctx)
	if err != nil {
		return calendar.View{}, err
	}
	e, err := m.getEvent(ctx, id)
	if err != nil {
		return calendar.View{}, err
	}
	views, err := m.present(ctx, s, userID, calendar.Select([]calendar.Event{e}, calendar.Published()))
	if err != nil {
		return calendar.View{}, err
	}
	if len(views) == 0 {
		return calendar.View{}, fmt.Errorf("event %d not visible: %w", id, sql.ErrNoRows)
	}
	return views[0], nil
}

// present filters events for the viewer, derives their attributes and runs
// the before_render hook.
func (m *Module) present(ctx context.Context, s Settings, userID int64, events []calendar.Event) ([]calendar.View, error) {
	visible, err := calendar.NewAccessFilter(m.permissions()).Apply(ctx, events, s.Viewer(userID))
	if err != nil {
		return nil, err
	}

	views := calendar.DeriveAll(ctx, visible, calendar.DeriveOptions{
		TimeFormat: s.TimeFormat,
		Users:      m.users(),
	})
	for _, v := range views {
		if v.TimeErr != nil {
			m.ctx.Logger.Warn("event time not understood", "event_id", v.ID, "time", v.Time, "error", v.TimeErr)
		}
	}

	if m.ctx.Hooks == nil {
		return views, nil
	}
	out, err := m.ctx.Hooks.Call(ctx, module.HookEventsBeforeRender, views)
	if err != nil {
		return nil, err
	}
	if replaced, ok := out.([]calendar.View); ok {
		views = replaced
	}
	return views, nil
}

// publishedBetween loads published events dated from..to, cached per window.
func (m *Module) publishedBetween(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	load := func(ctx context.Context) ([]calendar.Event, error) {
		return m.listEvents(ctx, EventFilter{From: &from, To: &to, PublishedOnly: true})
	}
	if m.events == nil {
		return load(ctx)
	}
	return m.events.GetOrSet(ctx, m.listingKey(from, to), load)
}

// listingKey names the cached listing for a window. A load that overlaps a
// write stores under the previous generation, which no later read asks for.
func (m *Module) listingKey(from, to time.Time) string {
	return fmt.Sprintf("published:%d:%s:%s", m.generation.Load(), dateArg(from), dateArg(to))
}

// saveEvent validates e, runs the save hooks and stores it. A zero ID
// inserts.
func (m *Module) saveEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	if m.ctx.Hooks != nil {
		out, err := m.ctx.Hooks.Call(ctx, module.HookEventBeforeSave, &e)
		if err != nil {
			return calendar.Event{}, err
		}
		if replaced, ok := out.(*calendar.Event); ok && replaced != nil {
			e = *replaced
		}
	}

	if err := calendar.Validate(e); err != nil {
		return calendar.Event{}, err
	}
	clock, err := calendar.NormalizeTime(e.Time)
	if err != nil {
		return calendar.Event{}, err
	}
	e.Time = clock

	if e.ID == 0 {
		id, err := m.insertEvent(ctx, e)
		if err != nil {
			return calendar.Event{}, err
		}
		e.ID = id
	} else if err := m.updateEvent(ctx, e); err != nil {
		return calendar.Event{}, err
	}

	saved, err := m.getEvent(ctx, e.ID)
	if err != nil {
		return calendar.Event{}, err
	}
	m.afterWrite(ctx)

	if m.ctx.Hooks != nil {
		if err := m.ctx.Hooks.CallNoResult(ctx, module.HookEventAfterSave, saved); err != nil {
			m.ctx.Logger.Warn("after_save hook failed", "event_id", saved.ID, "error", err)
		}
	}
	return saved, nil
}

func (m *Module) removeEvent(ctx context.Context, id int64) error {
	if err := m.deleteEvent(ctx, id); err != nil {
		return err
	}
	m.afterWrite(ctx)

	if m.ctx.Hooks != nil {
		if err := m.ctx.Hooks.CallNoResult(ctx, module.HookEventAfterDelete, id); err != nil {
			m.ctx.Logger.Warn("after_delete hook failed", "event_id", id, "error", err)
		}
	}
	return nil
}

// afterWrite moves this process to a new listing generation and drops cached
// listings. Other processes sharing a Redis cache rely on the invalidation;
// a listing they were loading during the write can stay stale until the next
// flush.
func (m *Module) afterWrite(ctx context.Context) {
	m.generation.Add(1)
	if err := m.invalidateEvents(ctx); err != nil {
		m.ctx.Logger.Warn("event cache not invalidated", "error", err)
	}
}
