// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Calendar hooks. before_save and before_render handlers may replace the
// data they receive; the after_* hooks are notifications.
const (
	HookEventBeforeSave    = "event.before_save"    // *calendar.Event
	HookEventAfterSave     = "event.after_save"     // calendar.Event
	HookEventAfterDelete   = "event.after_delete"   // int64 event ID
	HookEventsBeforeRender = "events.before_render" // []calendar.View
)

// HookFunc receives data and returns it, possibly modified. An error stops
// the chain.
type HookFunc func(ctx context.Context, data any) (any, error)

// HookHandler wraps a HookFunc with metadata.
type HookHandler struct {
	Name     string
	Module   string
	Priority int // lower runs first
	Fn       HookFunc
}

// IsModuleActiveFunc reports whether the named module is active.
type IsModuleActiveFunc func(moduleName string) bool

// HookRegistry manages hook registration and execution.
type HookRegistry struct {
	hooks          map[string][]HookHandler
	logger         *slog.Logger
	isModuleActive IsModuleActiveFunc
	mu             sync.RWMutex
}

// NewHookRegistry creates a hook registry in which every module is active.
func NewHookRegistry(logger *slog.Logger) *HookRegistry {
	return &HookRegistry{
		hooks:          make(map[string][]HookHandler),
		logger:         logger,
		isModuleActive: func(string) bool { return true },
	}
}

// SetIsModuleActive sets the callback used to skip handlers of inactive modules.
func (h *HookRegistry) SetIsModuleActive(fn IsModuleActiveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isModuleActive = fn
}

// Register adds a handler. Handlers with equal priority keep registration order.
func (h *HookRegistry) Register(hookName string, handler HookHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handlers := append(h.hooks[hookName], handler)
	slices.SortStableFunc(handlers, func(a, b HookHandler) int {
		return a.Priority - b.Priority
	})
	h.hooks[hookName] = handlers

	h.logger.Debug("hook registered",
		"hook", hookName,
		"handler", handler.Name,
		"module", handler.Module,
		"priority", handler.Priority,
	)
}

// RegisterFunc registers fn with priority 0.
func (h *HookRegistry) RegisterFunc(hookName, handlerName, moduleName string, fn HookFunc) {
	h.Register(hookName, HookHandler{Name: handlerName, Module: moduleName, Fn: fn})
}

// Call passes data through every active handler of hookName in priority order
// and returns the final value.
func (h *HookRegistry) Call(ctx context.Context, hookName string, data any) (any, error) {
	h.mu.RLock()
	handlers := slices.Clone(h.hooks[hookName])
	isModuleActive := h.isModuleActive
	h.mu.RUnlock()

	current := data
	for _, handler := range handlers {
		if !isModuleActive(handler.Module) {
			continue
		}

		result, err := handler.Fn(ctx, current)
		if err != nil {
			h.logger.Error("hook handler error",
				"hook", hookName,
				"handler", handler.Name,
				"module", handler.Module,
				"error", err,
			)
			return nil, fmt.Errorf("hook %s handler %s: %w", hookName, handler.Name, err)
		}
		current = result
	}

	return current, nil
}

// CallNoResult runs a notification hook.
func (h *HookRegistry) CallNoResult(ctx context.Context, hookName string, data any) error {
	_, err := h.Call(ctx, hookName, data)
	return err
}

// HasHandlers returns true if there are handlers registered for the hook.
func (h *HookRegistry) HasHandlers(hookName string) bool {
	return h.HandlerCount(hookName) > 0
}

// HandlerCount returns the number of handlers registered for a hook.
func (h *HookRegistry) HandlerCount(hookName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[hookName])
}

// HookInfo describes one hook and its handlers.
type HookInfo struct {
	Name     string            `json:"name"`
	Handlers []HookHandlerInfo `json:"handlers"`
}

// HookHandlerInfo describes a registered handler.
type HookHandlerInfo struct {
	Name     string `json:"name"`
	Module   string `json:"module"`
	Priority int    `json:"priority"`
}

// ListHookInfo returns every hook with handlers, sorted by hook name.
func (h *HookRegistry) ListHookInfo() []HookInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]HookInfo, 0, len(h.hooks))
	for name, handlers := range h.hooks {
		if len(handlers) == 0 {
			continue
		}
		info := HookInfo{Name: name, Handlers: make([]HookHandlerInfo, len(handlers))}
		for i, handler := range handlers {
			info.Handlers[i] = HookHandlerInfo{Name: handler.Name, Module: handler.Module, Priority: handler.Priority}
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b HookInfo) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return infos
}

// UnregisterAll removes all handlers registered by a module.
func (h *HookRegistry) UnregisterAll(moduleName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for hookName, handlers := range h.hooks {
		h.hooks[hookName] = slices.DeleteFunc(handlers, func(hh HookHandler) bool {
			return hh.Module == moduleName
		})
	}
	h.logger.Debug("all hooks unregistered for module", "module", moduleName)
}
