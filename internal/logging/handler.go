// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides the slog setup and a handler that copies WARN and
// ERROR records into the audit_log table.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/olegiv/ocms-calendar/internal/store"
)

// Audit log levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Audit log categories.
const (
	CategoryCalendar   = "calendar"
	CategoryAuth       = "auth"
	CategoryPermission = "permission"
	CategoryCache      = "cache"
	CategorySystem     = "system"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewTextLogger creates the plain text logger used before the database is open.
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// AuditLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the audit log.
type AuditLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewAuditLogHandler creates an AuditLogHandler forwarding WARN and above.
func NewAuditLogHandler(inner slog.Handler, db *sql.DB) *AuditLogHandler {
	return NewAuditLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewAuditLogHandlerWithLevel creates an AuditLogHandler with a custom minimum level.
func NewAuditLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *AuditLogHandler {
	return &AuditLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *AuditLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AuditLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeAuditEntry(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &AuditLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler.
func (h *AuditLogHandler) WithGroup(name string) slog.Handler {
	return &AuditLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeAuditEntry stores r. It uses a background context so the entry is
// written even when the request context is already cancelled.
func (h *AuditLogHandler) writeAuditEntry(r slog.Record) {
	attrs := h.collectAttrs(r)

	_, _ = h.queries.CreateAuditEntry(context.Background(), store.CreateAuditEntryParams{
		Level:     auditLevel(r.Level),
		Category:  category(r.Message, attrs),
		Message:   r.Message,
		UserID:    userID(attrs),
		Metadata:  metadata(attrs),
		CreatedAt: r.Time,
	})
}

func (h *AuditLogHandler) collectAttrs(r slog.Record) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

func auditLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// category returns the "category" attribute or infers one from the message.
func category(msg string, attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == "category" {
			return a.Value.String()
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "session"):
		return CategoryAuth
	case strings.Contains(msg, "permission") || strings.Contains(msg, "passage"):
		return CategoryPermission
	case strings.Contains(msg, "event") || strings.Contains(msg, "calendar") || strings.Contains(msg, "categor"):
		return CategoryCalendar
	case strings.Contains(msg, "cache"):
		return CategoryCache
	default:
		return CategorySystem
	}
}

func userID(attrs []slog.Attr) sql.NullInt64 {
	for _, a := range attrs {
		if a.Key == "user_id" && a.Value.Kind() == slog.KindInt64 {
			return sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
		}
	}
	return sql.NullInt64{}
}

// metadata encodes the attributes, except category, as a JSON object.
func metadata(attrs []slog.Attr) string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Key == "category" {
			continue
		}
		m[a.Key] = a.Value.String()
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
