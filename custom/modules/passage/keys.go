// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package passage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// Key is a permission key.
type Key struct {
	ID          calendar.PermissionID `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`
}

// KeyParams holds the fields of a new key.
type KeyParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (m *Module) createKey(ctx context.Context, p KeyParams) (Key, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Key{}, &calendar.PrerequisiteError{Missing: []string{"name"}}
	}

	var n int
	if err := m.ctx.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM passage_keys WHERE name = ?`, p.Name).Scan(&n); err != nil {
		return Key{}, err
	}
	if n > 0 {
		return Key{}, &calendar.ValidationError{Field: "name", Message: "already exists"}
	}

	res, err := m.ctx.DB.ExecContext(ctx,
		`INSERT INTO passage_keys (name, description, created_at) VALUES (?, ?, ?)`,
		p.Name, strings.TrimSpace(p.Description), time.Now().UTC())
	if err != nil {
		return Key{}, fmt.Errorf("inserting key: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Key{}, err
	}
	return m.getKey(ctx, calendar.PermissionID(id))
}

func (m *Module) getKey(ctx context.Context, id calendar.PermissionID) (Key, error) {
	var k Key
	err := m.ctx.DB.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM passage_keys WHERE id = ?`, id).
		Scan(&k.ID, &k.Name, &k.Description, &k.CreatedAt)
	if err != nil {
		return Key{}, fmt.Errorf("key %d: %w", id, err)
	}
	return k, nil
}

func (m *Module) queryKeys(ctx context.Context, query string, args ...any) ([]Key, error) {
	rows, err := m.ctx.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	keys := []Key{}
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ID, &k.Name, &k.Description, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (m *Module) listKeys(ctx context.Context) ([]Key, error) {
	return m.queryKeys(ctx, `SELECT id, name, description, created_at FROM passage_keys ORDER BY name`)
}

func (m *Module) userKeys(ctx context.Context, userID int64) ([]Key, error) {
	return m.queryKeys(ctx, `
		SELECT k.id, k.name, k.description, k.created_at
		FROM passage_keys k
		JOIN passage_user_keys uk ON uk.key_id = k.id
		WHERE uk.user_id = ?
		ORDER BY k.name
	`, userID)
}

func (m *Module) deleteKey(ctx context.Context, id calendar.PermissionID) error {
	tx, err := m.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passage_user_keys WHERE key_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM passage_keys WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("key %d: %w", id, sql.ErrNoRows)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return m.invalidateAll(ctx)
}

func (m *Module) grant(ctx context.Context, userID int64, keyID calendar.PermissionID) error {
	if _, err := m.getKey(ctx, keyID); err != nil {
		return err
	}
	_, err := m.ctx.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO passage_user_keys (user_id, key_id, created_at) VALUES (?, ?, ?)`,
		userID, keyID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("granting key %d to user %d: %w", keyID, userID, err)
	}
	return m.invalidate(ctx, userID)
}

func (m *Module) revoke(ctx context.Context, userID int64, keyID calendar.PermissionID) error {
	res, err := m.ctx.DB.ExecContext(ctx,
		`DELETE FROM passage_user_keys WHERE user_id = ? AND key_id = ?`, userID, keyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("grant of key %d to user %d: %w", keyID, userID, sql.ErrNoRows)
	}
	return m.invalidate(ctx, userID)
}

func (m *Module) loadGranted(ctx context.Context, userID int64) ([]calendar.PermissionID, error) {
	rows, err := m.ctx.DB.QueryContext(ctx,
		`SELECT key_id FROM passage_user_keys WHERE user_id = ? ORDER BY key_id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []calendar.PermissionID{}
	for rows.Next() {
		var id calendar.PermissionID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GrantedPermissions implements calendar.PermissionProvider. Answers are
// cached per user until a grant changes or the refresh job runs.
func (m *Module) GrantedPermissions(ctx context.Context, userID int64) ([]calendar.PermissionID, error) {
	if userID == 0 {
		return nil, nil
	}
	if m.grants == nil {
		return m.loadGranted(ctx, userID)
	}
	return m.grants.GetOrSet(ctx, strconv.FormatInt(userID, 10), func(ctx context.Context) ([]calendar.PermissionID, error) {
		return m.loadGranted(ctx, userID)
	})
}

func (m *Module) invalidate(ctx context.Context, userID int64) error {
	if m.grants == nil {
		return nil
	}
	if err := m.grants.Delete(ctx, strconv.FormatInt(userID, 10)); err != nil {
		m.ctx.Logger.Warn("failed to drop cached permission grants", "category", "cache", "user_id", userID, "error", err)
	}
	return nil
}

func (m *Module) invalidateAll(ctx context.Context) error {
	if m.grants == nil {
		return nil
	}
	return m.grants.Invalidate(ctx)
}
