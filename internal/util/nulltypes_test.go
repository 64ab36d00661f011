// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"testing"
)

func TestNullInt64FromID(t *testing.T) {
	if got := NullInt64FromID(0); got.Valid {
		t.Errorf("NullInt64FromID(0) = %v, want NULL", got)
	}
	if got := NullInt64FromID(7); got != (sql.NullInt64{Int64: 7, Valid: true}) {
		t.Errorf("NullInt64FromID(7) = %v", got)
	}
}

func TestIDFromNull(t *testing.T) {
	if got := IDFromNull(sql.NullInt64{}); got != 0 {
		t.Errorf("IDFromNull(NULL) = %d, want 0", got)
	}
	if got := IDFromNull(sql.NullInt64{Int64: 3, Valid: true}); got != 3 {
		t.Errorf("IDFromNull(3) = %d, want 3", got)
	}
}

func TestNullStringFromValue(t *testing.T) {
	if got := NullStringFromValue(""); got.Valid {
		t.Errorf("NullStringFromValue(\"\") = %v, want NULL", got)
	}
	if got := NullStringFromValue("09:30"); got != (sql.NullString{String: "09:30", Valid: true}) {
		t.Errorf("NullStringFromValue(09:30) = %v", got)
	}
}
