// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

//go:embed demo.yaml
var demoYAML []byte

type demoData struct {
	Categories []struct {
		Name         string `yaml:"name"`
		Slug         string `yaml:"slug"`
		PermissionID int64  `yaml:"permission_id"`
	} `yaml:"categories"`
	Events []struct {
		Name       string   `yaml:"name"`
		Offset     int      `yaml:"offset"`
		Time       string   `yaml:"time"`
		Published  bool     `yaml:"published"`
		AllDay     bool     `yaml:"allday"`
		Categories []string `yaml:"categories"`
		Excerpt    string   `yaml:"excerpt"`
	} `yaml:"events"`
}

// seedDemo loads the demo calendar unless events already exist.
func (m *Module) seedDemo(ctx context.Context) error {
	n, err := m.countEvents(ctx, EventFilter{})
	if err != nil {
		return err
	}
	if n > 0 {
		m.ctx.Logger.Info("calendar already has events, skipping demo seed", "events", n)
		return nil
	}

	var data demoData
	if err := yaml.Unmarshal(demoYAML, &data); err != nil {
		return fmt.Errorf("parsing demo calendar: %w", err)
	}

	bySlug := make(map[string]calendar.Category, len(data.Categories))
	for _, dc := range data.Categories {
		c, err := m.insertCategory(ctx, calendar.Category{
			Name:         dc.Name,
			Slug:         dc.Slug,
			PermissionID: calendar.PermissionID(dc.PermissionID),
		})
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", dc.Name, err)
		}
		bySlug[c.Slug] = c
	}

	today := calendar.DateOf(m.now())
	for _, de := range data.Events {
		e := calendar.Event{
			Date:        today.AddDate(0, 0, de.Offset),
			Time:        de.Time,
			Name:        de.Name,
			IsPublished: de.Published,
			AllDay:      de.AllDay,
			Excerpt:     de.Excerpt,
		}
		for _, slug := range de.Categories {
			c, ok := bySlug[slug]
			if !ok {
				return fmt.Errorf("demo event %q: unknown category %q", de.Name, slug)
			}
			e.Categories = append(e.Categories, c)
		}
		if err := calendar.Validate(e); err != nil {
			return fmt.Errorf("demo event %q: %w", de.Name, err)
		}
		if _, err := m.insertEvent(ctx, e); err != nil {
			return fmt.Errorf("seeding event %q: %w", de.Name, err)
		}
	}

	m.ctx.Logger.Info("demo calendar seeded", "categories", len(data.Categories), "events", len(data.Events))
	return nil
}
