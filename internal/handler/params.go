// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// URLParamID parses a positive int64 chi URL parameter.
func URLParamID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &calendar.FormatError{Field: name, Value: raw, Reason: "expected a positive integer"}
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter, returning def when it
// is absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &calendar.FormatError{Field: name, Value: raw, Reason: "expected an integer"}
	}
	return n, nil
}

// Pagination returns limit and offset from the query, with limit clamped to
// 1..maxLimit and offset to at least 0.
func Pagination(r *http.Request, def, maxLimit int) (limit, offset int, err error) {
	if limit, err = QueryInt(r, "limit", def); err != nil {
		return 0, 0, err
	}
	if offset, err = QueryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return min(max(limit, 1), maxLimit), max(offset, 0), nil
}
