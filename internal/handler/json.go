// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler holds the JSON response helpers shared by module handlers
// and the core health and admin endpoints.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// MaxBodyBytes limits JSON request bodies.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteErr maps err to a status code and writes it. Validation and format
// errors become 400 with their field, missing required fields 422, missing
// rows 404, and anything else is logged and reported as 500.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *calendar.ValidationError
		fe *calendar.FormatError
		pe *calendar.PrerequisiteError
	)
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &fe):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: fe.Error(), Field: fe.Field})
	case errors.Is(err, sql.ErrNoRows):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.As(err, &pe):
		WriteError(w, http.StatusUnprocessableEntity, pe.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// DecodeJSON reads a JSON body of at most MaxBodyBytes into dst and rejects
// unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, true)
}

// DecodeJSONIgnoringUnknown is DecodeJSON without the unknown-field check,
// for payloads that may echo read-only keys back.
func DecodeJSONIgnoringUnknown(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, false)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return &calendar.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &calendar.ValidationError{Field: "body", Message: "must contain a single JSON object"}
	}
	return nil
}
