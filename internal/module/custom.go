// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import "sync"

// customModules holds modules registered from init() functions, in the
// style of database/sql.Register.
var (
	customMu      sync.Mutex
	customModules []Module
)

// RegisterCustomModule queues m for registration at startup. Call it from an
// init() function and blank-import the package from main:
//
//	func init() { module.RegisterCustomModule(New()) }
func RegisterCustomModule(m Module) {
	customMu.Lock()
	defer customMu.Unlock()
	customModules = append(customModules, m)
}

// CustomModules returns a copy of the queued modules in registration order.
func CustomModules() []Module {
	customMu.Lock()
	defer customMu.Unlock()
	result := make([]Module, len(customModules))
	copy(result, customModules)
	return result
}
