// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package passage

import "github.com/olegiv/ocms-calendar/internal/module"

func init() {
	module.RegisterCustomModule(New())
}
