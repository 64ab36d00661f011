// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/ocms-calendar/internal/handler"
)

// maxLockout caps the exponential lockout backoff.
const maxLockout = 24 * time.Hour

// LoginProtection combines per-IP rate limiting of login requests with
// per-account lockout after repeated failures.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	mu       sync.Mutex
	attempts map[string]*loginAttempt

	maxFailedAttempts int
	lockoutDuration   time.Duration // doubles with each lockout
	attemptWindow     time.Duration

	now func() time.Time
}

type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	IPRateLimit       float64 // requests per second per IP
	IPBurst           int
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	AttemptWindow     time.Duration
}

// DefaultLoginProtectionConfig allows one login every two seconds per IP with
// a burst of five, and locks an account for 15 minutes after five failures
// within 15 minutes.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a LoginProtection, filling zero fields from
// DefaultLoginProtectionConfig.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	return &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		attempts:          make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
	}
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether the account is locked and for how long.
func (lp *LoginProtection) IsLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	a, ok := lp.attempts[accountKey(email)]
	if !ok {
		return false, 0
	}
	if now := lp.now(); now.Before(a.lockedUntil) {
		return true, a.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a failed login and reports whether it locked the
// account, with the lock duration.
func (lp *LoginProtection) RecordFailure(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	key := accountKey(email)
	now := lp.now()
	a, ok := lp.attempts[key]
	if !ok {
		a = &loginAttempt{}
		lp.attempts[key] = a
	}
	if a.count == 0 || now.Sub(a.firstFailed) > lp.attemptWindow {
		a.count = 0
		a.firstFailed = now
	}
	a.count++

	if a.count < lp.maxFailedAttempts {
		return false, 0
	}

	d := lp.lockoutDuration
	for range a.lockouts {
		d *= 2
		if d >= maxLockout {
			d = maxLockout
			break
		}
	}
	a.lockedUntil = now.Add(d)
	a.lockouts++
	a.count = 0

	slog.Warn("account locked after failed logins",
		"category", "auth", "email", key, "lockouts", a.lockouts, "duration", d.String())
	return true, d
}

// RecordSuccess forgets the failures of an account.
func (lp *LoginProtection) RecordSuccess(email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	delete(lp.attempts, accountKey(email))
}

// RemainingAttempts returns how many failures are left before a lockout.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	a, ok := lp.attempts[accountKey(email)]
	if !ok || lp.now().Sub(a.firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-a.count, 0)
}

// Prune drops accounts whose lock and attempt window have both expired.
func (lp *LoginProtection) Prune() int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	n := 0
	for k, a := range lp.attempts {
		if now.After(a.lockedUntil) && now.Sub(a.firstFailed) > lp.attemptWindow {
			delete(lp.attempts, k)
			n++
		}
	}
	return n
}

// Middleware rate limits POST requests per client IP.
func (lp *LoginProtection) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if !lp.ipLimiters.get(ip).Allow() {
			slog.Warn("login rate limit exceeded", "category", "auth", "ip", ip)
			handler.WriteError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
