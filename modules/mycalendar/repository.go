// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/ocms-calendar/internal/calendar"
	"github.com/olegiv/ocms-calendar/internal/util"
)

// EventFilter narrows listEvents. Zero values do not filter.
type EventFilter struct {
	ID            int64
	From, To      *time.Time // inclusive dates
	PublishedOnly bool
	CategoryID    int64
	Limit, Offset int
}

func (f EventFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ID != 0 {
		conds = append(conds, "e.id = ?")
		args = append(args, f.ID)
	}
	if f.From != nil {
		conds = append(conds, "e.date >= ?")
		args = append(args, dateArg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "e.date <= ?")
		args = append(args, dateArg(*f.To))
	}
	if f.PublishedOnly {
		conds = append(conds, "e.is_published = 1")
	}
	if f.CategoryID != 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM mycalendar_categories_events x WHERE x.event_id = e.id AND x.category_id = ?)")
		args = append(args, f.CategoryID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const eventColumns = `e.id, e.date, e.time, e.name, e.is_published, e.owner_id,
	e.excerpt, e.multidate, e.excluded, e.allday, e.thru, e.recur, e.created_at, e.updated_at`

func scanEvent(row interface{ Scan(...any) error }) (calendar.Event, error) {
	var (
		e         calendar.Event
		date      sqlDate
		clock     sql.NullString
		owner     sql.NullInt64
		excerpt   sql.NullString
		multidate sqlDate
		excluded  sqlDate
		allday    sql.NullInt64
		thru      sqlDate
		recur     sql.NullString
	)
	err := row.Scan(&e.ID, &date, &clock, &e.Name, &e.IsPublished, &owner,
		&excerpt, &multidate, &excluded, &allday, &thru, &recur, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return calendar.Event{}, err
	}
	e.Date = date.Time
	e.Time = clock.String
	e.OwnerID = util.IDFromNull(owner)
	e.Excerpt = excerpt.String
	e.MultiDate = multidate.ptr()
	e.Excluded = excluded.ptr()
	e.AllDay = allday.Valid && allday.Int64 != 0
	e.Thru = thru.ptr()
	e.Recur = recur.String
	e.Categories = []calendar.Category{}
	return e, nil
}

// listEvents returns events ordered by date, time and id, with categories.
func (m *Module) listEvents(ctx context.Context, f EventFilter) ([]calendar.Event, error) {
	where, args := f.where()
	query := `SELECT ` + eventColumns + ` FROM mycalendar_events e` + where +
		` ORDER BY e.date, COALESCE(e.time, ''), e.id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := m.ctx.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []calendar.Event{}
	index := map[int64]int{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	if err := m.attachCategories(ctx, events, index); err != nil {
		return nil, err
	}
	return events, nil
}

func (m *Module) attachCategories(ctx context.Context, events []calendar.Event, index map[int64]int) error {
	ids := make([]any, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	// SQLite allows 32766 host parameters; stay well below.
	for chunk := range slices.Chunk(ids, 500) {
		rows, err := m.ctx.DB.QueryContext(ctx, `
			SELECT ce.event_id, c.id, c.name, c.slug, c.permission_id
			FROM mycalendar_categories_events ce
			JOIN mycalendar_categories c ON c.id = ce.category_id
			WHERE ce.event_id IN (?`+strings.Repeat(",?", len(chunk)-1)+`)
			ORDER BY c.name, c.id
		`, chunk...)
		if err != nil {
			return fmt.Errorf("querying event categories: %w", err)
		}
		for rows.Next() {
			var (
				eventID int64
				c       calendar.Category
			)
			if err := rows.Scan(&eventID, &c.ID, &c.Name, &c.Slug, &c.PermissionID); err != nil {
				_ = rows.Close()
				return err
			}
			if i, ok := index[eventID]; ok {
				events[i].Categories = append(events[i].Categories, c)
			}
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) countEvents(ctx context.Context, f EventFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := m.ctx.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM mycalendar_events e`+where, args...).Scan(&n)
	return n, err
}

// getEvent returns one event or an error wrapping sql.ErrNoRows.
func (m *Module) getEvent(ctx context.Context, id int64) (calendar.Event, error) {
	events, err := m.listEvents(ctx, EventFilter{ID: id})
	if err != nil {
		return calendar.Event{}, err
	}
	if len(events) == 0 {
		return calendar.Event{}, fmt.Errorf("event %d: %w", id, sql.ErrNoRows)
	}
	return events[0], nil
}

func eventArgs(e calendar.Event) []any {
	allday := sql.NullInt64{}
	if e.AllDay {
		allday = sql.NullInt64{Int64: 1, Valid: true}
	}
	return []any{
		dateArg(e.Date), util.NullStringFromValue(e.Time), e.Name, e.IsPublished, util.NullInt64FromID(e.OwnerID),
		util.NullStringFromValue(e.Excerpt), optionalDateArg(e.MultiDate), optionalDateArg(e.Excluded),
		allday, optionalDateArg(e.Thru), util.NullStringFromValue(e.Recur),
	}
}

// insertEvent stores e and its category links, returning the new id.
func (m *Module) insertEvent(ctx context.Context, e calendar.Event) (int64, error) {
	tx, err := m.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	args := append(eventArgs(e), now, now)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO mycalendar_events
			(date, time, name, is_published, owner_id, excerpt, multidate, excluded, allday, thru, recur, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := linkCategories(ctx, tx, id, e.CategoryIDs()); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// updateEvent replaces the stored fields and category links of e.ID.
func (m *Module) updateEvent(ctx context.Context, e calendar.Event) error {
	tx, err := m.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	args := append(eventArgs(e), time.Now().UTC(), e.ID)
	res, err := tx.ExecContext(ctx, `
		UPDATE mycalendar_events SET
			date = ?, time = ?, name = ?, is_published = ?, owner_id = ?,
			excerpt = ?, multidate = ?, excluded = ?, allday = ?, thru = ?, recur = ?,
			updated_at = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("updating event %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %d: %w", e.ID, sql.ErrNoRows)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mycalendar_categories_events WHERE event_id = ?`, e.ID); err != nil {
		return err
	}
	if err := linkCategories(ctx, tx, e.ID, e.CategoryIDs()); err != nil {
		return err
	}
	return tx.Commit()
}

func linkCategories(ctx context.Context, tx *sql.Tx, eventID int64, categoryIDs []int64) error {
	for _, cid := range categoryIDs {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM mycalendar_categories WHERE id = ?`, cid).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &calendar.ValidationError{Field: "category_ids", Message: fmt.Sprintf("unknown category %d", cid)}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO mycalendar_categories_events (event_id, category_id) VALUES (?, ?)`,
			eventID, cid); err != nil {
			return fmt.Errorf("linking category %d: %w", cid, err)
		}
	}
	return nil
}

func (m *Module) deleteEvent(ctx context.Context, id int64) error {
	tx, err := m.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mycalendar_categories_events WHERE event_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM mycalendar_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %d: %w", id, sql.ErrNoRows)
	}
	return tx.Commit()
}

// Categories

const categoryColumns = `id, name, slug, permission_id`

func (m *Module) listCategories(ctx context.Context) ([]calendar.Category, error) {
	rows, err := m.ctx.DB.QueryContext(ctx, `SELECT `+categoryColumns+` FROM mycalendar_categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cats := []calendar.Category{}
	for rows.Next() {
		var c calendar.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.PermissionID); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (m *Module) getCategory(ctx context.Context, id int64) (calendar.Category, error) {
	var c calendar.Category
	err := m.ctx.DB.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM mycalendar_categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.PermissionID)
	if err != nil {
		return calendar.Category{}, fmt.Errorf("category %d: %w", id, err)
	}
	return c, nil
}

func (m *Module) slugTaken(ctx context.Context, exceptID int64) func(string) (bool, error) {
	return func(slug string) (bool, error) {
		var n int
		err := m.ctx.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM mycalendar_categories WHERE slug = ? AND id != ?`, slug, exceptID).Scan(&n)
		return n > 0, err
	}
}

func validateCategory(c calendar.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return &calendar.PrerequisiteError{Missing: []string{"name"}}
	}
	if c.PermissionID < 0 {
		return &calendar.ValidationError{Field: "permission_id", Message: "must not be negative"}
	}
	if c.Slug != "" && !util.IsValidSlug(c.Slug) {
		return &calendar.ValidationError{Field: "slug", Message: "lowercase letters, digits and single hyphens only"}
	}
	return nil
}

// insertCategory stores c, deriving a unique slug from the name when none
// is given.
func (m *Module) insertCategory(ctx context.Context, c calendar.Category) (calendar.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := validateCategory(c); err != nil {
		return calendar.Category{}, err
	}

	slug, err := m.resolveSlug(ctx, c, 0)
	if err != nil {
		return calendar.Category{}, err
	}
	now := time.Now().UTC()
	res, err := m.ctx.DB.ExecContext(ctx, `
		INSERT INTO mycalendar_categories (name, slug, permission_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, slug, int64(c.PermissionID), now, now)
	if err != nil {
		return calendar.Category{}, fmt.Errorf("inserting category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return calendar.Category{}, err
	}
	return m.getCategory(ctx, id)
}

func (m *Module) resolveSlug(ctx context.Context, c calendar.Category, exceptID int64) (string, error) {
	if c.Slug == "" {
		return util.UniqueSlug(c.Name, "category", m.slugTaken(ctx, exceptID))
	}
	taken, err := m.slugTaken(ctx, exceptID)(c.Slug)
	if err != nil {
		return "", err
	}
	if taken {
		return "", &calendar.ValidationError{Field: "slug", Message: "already in use"}
	}
	return c.Slug, nil
}

func (m *Module) updateCategory(ctx context.Context, c calendar.Category) (calendar.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := validateCategory(c); err != nil {
		return calendar.Category{}, err
	}
	if _, err := m.getCategory(ctx, c.ID); err != nil {
		return calendar.Category{}, err
	}
	slug, err := m.resolveSlug(ctx, c, c.ID)
	if err != nil {
		return calendar.Category{}, err
	}
	_, err = m.ctx.DB.ExecContext(ctx, `
		UPDATE mycalendar_categories SET name = ?, slug = ?, permission_id = ?, updated_at = ? WHERE id = ?
	`, c.Name, slug, int64(c.PermissionID), time.Now().UTC(), c.ID)
	if err != nil {
		return calendar.Category{}, fmt.Errorf("updating category %d: %w", c.ID, err)
	}
	return m.getCategory(ctx, c.ID)
}

func (m *Module) deleteCategory(ctx context.Context, id int64) error {
	tx, err := m.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mycalendar_categories_events WHERE category_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM mycalendar_categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", id, sql.ErrNoRows)
	}
	return tx.Commit()
}
