// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// excerptPolicy strips scripts, event handlers and the like from rendered
// excerpts.
var excerptPolicy = bluemonday.UGCPolicy()

// renderExcerpt converts a Markdown excerpt to sanitized HTML.
func renderExcerpt(markdown string) (string, error) {
	if markdown == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering excerpt: %w", err)
	}
	return excerptPolicy.Sanitize(buf.String()), nil
}

// eventResponse is the wire form of an event: stored fields, derived
// attributes and the rendered excerpt.
type eventResponse struct {
	calendar.View
	ExcerptHTML string `json:"excerpt_html,omitempty"`
}

func (m *Module) responses(views []calendar.View) []eventResponse {
	out := make([]eventResponse, 0, len(views))
	for _, v := range views {
		out = append(out, m.response(v))
	}
	return out
}

func (m *Module) response(v calendar.View) eventResponse {
	html, err := renderExcerpt(v.Excerpt)
	if err != nil {
		m.ctx.Logger.Warn("excerpt not rendered", "event_id", v.ID, "error", err)
	}
	return eventResponse{View: v, ExcerptHTML: html}
}
