// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic jobs modules register, such as cache
// flushes and permission refreshes, on one shared cron instance.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-calendar/internal/store"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ErrJobNotFound is returned for unknown source/name pairs.
var ErrJobNotFound = errors.New("job not found")

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Source          string    `json:"source"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSchedule string    `json:"default_schedule"`
	Schedule        string    `json:"schedule"` // effective schedule
	IsOverridden    bool      `json:"is_overridden"`
	LastRun         time.Time `json:"last_run,omitzero"`
	NextRun         time.Time `json:"next_run,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
}

type job struct {
	source          string
	name            string
	description     string
	defaultSchedule string
	schedule        string
	entryID         cron.EntryID
	fn              JobFunc
	run             func()

	mu      sync.Mutex
	lastErr string
}

// Registry owns the cron instance and the jobs registered on it. Schedule
// overrides are persisted in the settings table.
type Registry struct {
	cron    *cron.Cron
	queries *store.Queries // nil disables overrides
	logger  *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*job // key: "source:name"
}

// New creates a registry. q may be nil.
func New(q *store.Queries, logger *slog.Logger) *Registry {
	return &Registry{
		cron:    cron.New(cron.WithParser(parser)),
		queries: q,
		logger:  logger,
		jobs:    make(map[string]*job),
	}
}

func jobKey(source, name string) string {
	return source + ":" + name
}

func overrideKey(source, name string) string {
	return "scheduler." + source + "." + name
}

// ValidateSchedule checks a five-field cron expression or descriptor.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Add registers fn under source/name. A stored override replaces
// defaultSchedule.
func (r *Registry) Add(source, name, description, defaultSchedule string, fn JobFunc) error {
	if err := ValidateSchedule(defaultSchedule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := jobKey(source, name)
	if _, exists := r.jobs[key]; exists {
		return fmt.Errorf("job %s already registered", key)
	}

	j := &job{
		source:          source,
		name:            name,
		description:     description,
		defaultSchedule: defaultSchedule,
		schedule:        r.effectiveSchedule(source, name, defaultSchedule),
		fn:              fn,
	}
	j.run = func() { _ = r.execute(context.Background(), j, fn) }

	id, err := r.cron.AddFunc(j.schedule, j.run)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", key, err)
	}
	j.entryID = id
	r.jobs[key] = j

	r.logger.Debug("registered scheduled job", "source", source, "name", name, "schedule", j.schedule)
	return nil
}

func (r *Registry) effectiveSchedule(source, name, def string) string {
	if r.queries == nil {
		return def
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	override, err := r.queries.GetSetting(ctx, overrideKey(source, name))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("failed to load schedule override", "source", source, "name", name, "error", err)
		}
		return def
	}
	if ValidateSchedule(override) != nil {
		r.logger.Warn("ignoring invalid schedule override", "source", source, "name", name, "schedule", override)
		return def
	}
	return override
}

func (r *Registry) execute(ctx context.Context, j *job, fn JobFunc) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultJobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)

	j.mu.Lock()
	j.lastErr = ""
	if err != nil {
		j.lastErr = err.Error()
	}
	j.mu.Unlock()

	if err != nil {
		r.logger.Error("scheduled job failed", "source", j.source, "name", j.name, "error", err)
		return err
	}
	r.logger.Debug("scheduled job finished", "source", j.source, "name", j.name, "took", time.Since(start))
	return nil
}

// List returns all registered jobs sorted by source then name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, j := range r.jobs {
		entry := r.cron.Entry(j.entryID)
		j.mu.Lock()
		lastErr := j.lastErr
		j.mu.Unlock()

		result = append(result, JobInfo{
			Source:          j.source,
			Name:            j.name,
			Description:     j.description,
			DefaultSchedule: j.defaultSchedule,
			Schedule:        j.schedule,
			IsOverridden:    j.schedule != j.defaultSchedule,
			LastRun:         entry.Prev,
			NextRun:         entry.Next,
			LastError:       lastErr,
		})
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].Source != result[k].Source {
			return result[i].Source < result[k].Source
		}
		return result[i].Name < result[k].Name
	})
	return result
}

// TriggerNow runs a job synchronously and returns its error.
func (r *Registry) TriggerNow(ctx context.Context, source, name string) error {
	r.mu.RLock()
	j, ok := r.jobs[jobKey(source, name)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobKey(source, name))
	}

	r.logger.Info("manually triggering job", "source", source, "name", name)
	return r.execute(ctx, j, j.fn)
}

// UpdateSchedule reschedules a job and persists the override.
func (r *Registry) UpdateSchedule(ctx context.Context, source, name, schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobKey(source, name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobKey(source, name))
	}
	if err := r.reschedule(j, schedule); err != nil {
		return err
	}

	if r.queries != nil {
		if err := r.queries.SetSetting(ctx, overrideKey(source, name), schedule); err != nil {
			r.logger.Error("failed to persist schedule override", "source", source, "name", name, "error", err)
		}
	}
	r.logger.Info("updated job schedule", "source", source, "name", name, "schedule", schedule)
	return nil
}

// ResetSchedule removes the override and restores the default schedule.
func (r *Registry) ResetSchedule(ctx context.Context, source, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobKey(source, name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobKey(source, name))
	}
	if j.schedule != j.defaultSchedule {
		if err := r.reschedule(j, j.defaultSchedule); err != nil {
			return err
		}
	}
	if r.queries != nil {
		if err := r.queries.DeleteSetting(ctx, overrideKey(source, name)); err != nil {
			r.logger.Error("failed to remove schedule override", "source", source, "name", name, "error", err)
		}
	}
	return nil
}

// reschedule swaps the cron entry of j. Callers hold r.mu.
func (r *Registry) reschedule(j *job, schedule string) error {
	r.cron.Remove(j.entryID)
	id, err := r.cron.AddFunc(schedule, j.run)
	if err != nil {
		fallbackID, fallbackErr := r.cron.AddFunc(j.schedule, j.run)
		if fallbackErr != nil {
			return fmt.Errorf("critical: failed to restore schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		j.entryID = fallbackID
		return fmt.Errorf("failed to apply new schedule: %w", err)
	}
	j.entryID = id
	j.schedule = schedule
	return nil
}

// Remove drops every job registered by source.
func (r *Registry) Remove(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, j := range r.jobs {
		if j.source == source {
			r.cron.Remove(j.entryID)
			delete(r.jobs, key)
		}
	}
}

// Start begins running jobs in the background.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop stops the cron instance and waits for running jobs up to ctx.
func (r *Registry) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		r.logger.Warn("scheduler stop timed out")
	}
}
