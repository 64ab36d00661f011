// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/olegiv/ocms-calendar/internal/auth"
	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// Member is a stored site member.
type Member struct {
	ID          int64      `json:"id"`
	GivenName   string     `json:"given_name"`
	Surname     string     `json:"surname"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	passwordHash string
}

// User converts m to the identity the calendar works with.
func (m Member) User() calendar.User {
	return calendar.User{ID: m.ID, GivenName: m.GivenName, Surname: m.Surname, Email: m.Email}
}

// CreateParams holds the fields of a new member.
type CreateParams struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsAdmin   bool   `json:"is_admin"`
}

func (p *CreateParams) normalize() error {
	p.GivenName = strings.TrimSpace(p.GivenName)
	p.Surname = strings.TrimSpace(p.Surname)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	var missing []string
	if p.GivenName == "" {
		missing = append(missing, "given_name")
	}
	if p.Surname == "" {
		missing = append(missing, "surname")
	}
	if p.Email == "" {
		missing = append(missing, "email")
	}
	if p.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &calendar.PrerequisiteError{Missing: missing}
	}

	if addr, err := mail.ParseAddress(p.Email); err != nil || addr.Address != p.Email {
		return &calendar.ValidationError{Field: "email", Message: "not a valid address"}
	}
	if err := auth.ValidatePassword(p.Password); err != nil {
		return &calendar.ValidationError{Field: "password", Message: err.Error()}
	}
	return nil
}

const memberColumns = `id, given_name, surname, email, is_admin, last_login_at, created_at, password_hash`

func scanMember(row interface{ Scan(...any) error }) (Member, error) {
	var (
		mem       Member
		lastLogin sql.NullTime
	)
	err := row.Scan(&mem.ID, &mem.GivenName, &mem.Surname, &mem.Email, &mem.IsAdmin,
		&lastLogin, &mem.CreatedAt, &mem.passwordHash)
	if err != nil {
		return Member{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		mem.LastLoginAt = &t
	}
	return mem, nil
}

func (m *Module) create(ctx context.Context, p CreateParams) (Member, error) {
	if err := p.normalize(); err != nil {
		return Member{}, err
	}

	taken, err := m.emailTaken(ctx, p.Email)
	if err != nil {
		return Member{}, err
	}
	if taken {
		return Member{}, &calendar.ValidationError{Field: "email", Message: "already registered"}
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return Member{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	res, err := m.ctx.DB.ExecContext(ctx, `
		INSERT INTO members (given_name, surname, email, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.GivenName, p.Surname, p.Email, hash, p.IsAdmin, now, now)
	if err != nil {
		return Member{}, fmt.Errorf("inserting member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Member{}, err
	}
	return m.get(ctx, id)
}

func (m *Module) emailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := m.ctx.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE email = ?`, email).Scan(&n)
	return n > 0, err
}

func (m *Module) get(ctx context.Context, id int64) (Member, error) {
	row := m.ctx.DB.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	mem, err := scanMember(row)
	if err != nil {
		return Member{}, fmt.Errorf("member %d: %w", id, err)
	}
	return mem, nil
}

func (m *Module) getByEmail(ctx context.Context, email string) (Member, error) {
	row := m.ctx.DB.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanMember(row)
}

func (m *Module) list(ctx context.Context) ([]Member, error) {
	rows, err := m.ctx.DB.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY surname, given_name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Member
	for rows.Next() {
		mem, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mem)
	}
	return out, rows.Err()
}

func (m *Module) count(ctx context.Context) (int64, error) {
	var n int64
	err := m.ctx.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}

func (m *Module) delete(ctx context.Context, id int64) error {
	res, err := m.ctx.DB.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (m *Module) touchLogin(ctx context.Context, id int64, newHash string) error {
	now := time.Now().UTC()
	if newHash != "" {
		_, err := m.ctx.DB.ExecContext(ctx,
			`UPDATE members SET last_login_at = ?, password_hash = ?, updated_at = ? WHERE id = ?`, now, newHash, now, id)
		return err
	}
	_, err := m.ctx.DB.ExecContext(ctx, `UPDATE members SET last_login_at = ? WHERE id = ?`, now, id)
	return err
}

// authenticate returns the member for email when password matches, or
// sql.ErrNoRows for unknown emails and wrong passwords alike.
func (m *Module) authenticate(ctx context.Context, email, password string) (Member, error) {
	mem, err := m.getByEmail(ctx, email)
	if err != nil {
		return Member{}, err
	}
	ok, err := auth.CheckPassword(password, mem.passwordHash)
	if err != nil {
		return Member{}, fmt.Errorf("checking password of member %d: %w", mem.ID, err)
	}
	if !ok {
		return Member{}, sql.ErrNoRows
	}

	var rehash string
	if auth.NeedsRehash(mem.passwordHash) {
		if rehash, err = auth.HashPassword(password); err != nil {
			m.ctx.Logger.Warn("failed to upgrade password hash", "user_id", mem.ID, "error", err)
			rehash = ""
		}
	}
	if err := m.touchLogin(ctx, mem.ID, rehash); err != nil {
		m.ctx.Logger.Warn("failed to record login", "user_id", mem.ID, "error", err)
	}
	return mem, nil
}

// LookupUser implements calendar.UserDirectory.
func (m *Module) LookupUser(ctx context.Context, id int64) (calendar.User, error) {
	mem, err := m.get(ctx, id)
	if err != nil {
		return calendar.User{}, err
	}
	return mem.User(), nil
}

// ListUsers implements calendar.UserDirectory.
func (m *Module) ListUsers(ctx context.Context) ([]calendar.User, error) {
	list, err := m.list(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]calendar.User, 0, len(list))
	for _, mem := range list {
		users = append(users, mem.User())
	}
	return users, nil
}

// IsAdmin reports whether the member may use the admin API. Unknown ids are
// not admins.
func (m *Module) IsAdmin(ctx context.Context, id int64) (bool, error) {
	var isAdmin bool
	err := m.ctx.DB.QueryRowContext(ctx, `SELECT is_admin FROM members WHERE id = ?`, id).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return isAdmin, err
}
