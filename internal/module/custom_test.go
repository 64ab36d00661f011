// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import "testing"

// resetCustomModules clears the global custom module registry between tests.
func resetCustomModules() {
	customMu.Lock()
	defer customMu.Unlock()
	customModules = nil
}

func TestRegisterCustomModule(t *testing.T) {
	resetCustomModules()
	defer resetCustomModules()

	a := &BaseModule{name: "passage", version: "1.0.0"}
	b := &BaseModule{name: "extra", version: "0.1.0"}
	RegisterCustomModule(a)
	RegisterCustomModule(b)

	modules := CustomModules()
	if len(modules) != 2 {
		t.Fatalf("CustomModules() returned %d modules, want 2", len(modules))
	}
	if modules[0].Name() != "passage" || modules[1].Name() != "extra" {
		t.Errorf("order = [%s %s], want [passage extra]", modules[0].Name(), modules[1].Name())
	}
}

func TestCustomModulesReturnsCopy(t *testing.T) {
	resetCustomModules()
	defer resetCustomModules()

	RegisterCustomModule(&BaseModule{name: "passage"})

	modules := CustomModules()
	modules[0] = &BaseModule{name: "replaced"}

	if got := CustomModules()[0].Name(); got != "passage" {
		t.Errorf("registry mutated through returned slice: %q", got)
	}
}

func TestCustomModulesEmpty(t *testing.T) {
	resetCustomModules()
	defer resetCustomModules()

	if modules := CustomModules(); len(modules) != 0 {
		t.Errorf("CustomModules() returned %d modules, want 0", len(modules))
	}
}
