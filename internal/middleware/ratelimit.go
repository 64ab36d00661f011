// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/ocms-calendar/internal/handler"
)

// maxLimiters bounds the number of tracked clients before the map is reset.
const maxLimiters = 10000

// limiterCache hands out one token bucket per key.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if l, ok := lc.limiters[key]; ok {
		return l
	}
	if len(lc.limiters) >= maxLimiters {
		lc.limiters = make(map[K]*rate.Limiter)
	}
	l := rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = l
	return l
}

func (lc *limiterCache[K]) len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.limiters)
}

// RateLimit limits requests per client IP and answers 429 with Retry-After
// once the bucket is empty.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	lc := newLimiterCache[string](rps, burst)
	retry := strconv.Itoa(int(max(time.Second, time.Duration(float64(time.Second)/rps)).Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !lc.get(ip).Allow() {
				slog.Debug("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", retry)
				handler.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr. chi's RealIP middleware is
// expected to have applied proxy headers already.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
