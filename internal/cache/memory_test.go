// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "events:public", []byte("[1,2]"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "events:public")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "[1,2]" {
		t.Errorf("Get = %q, want [1,2]", got)
	}

	has, _ := cache.Has(ctx, "events:public")
	if !has {
		t.Error("Has = false for existing key")
	}

	if err := cache.Delete(ctx, "events:public"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "events:public"); err != ErrCacheMiss {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 30*time.Millisecond)
	_ = cache.Set(ctx, "long", []byte("v"), 0)

	time.Sleep(50 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("short key: got %v, want ErrCacheMiss", err)
	}
	if _, err := cache.Get(ctx, "long"); err != nil {
		t.Errorf("long key: got %v, want hit", err)
	}
	if has, _ := cache.Has(ctx, "short"); has {
		t.Error("Has = true for expired key")
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "passage:keys:1", []byte("a"), 0)
	_ = cache.Set(ctx, "passage:keys:2", []byte("b"), 0)
	_ = cache.Set(ctx, "mycalendar:events", []byte("c"), 0)

	if err := cache.DeleteByPrefix(ctx, "passage:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	for _, key := range []string{"passage:keys:1", "passage:keys:2"} {
		if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
			t.Errorf("%s should be deleted", key)
		}
	}
	if _, err := cache.Get(ctx, "mycalendar:events"); err != nil {
		t.Error("mycalendar:events should survive")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), 0)
	_ = cache.Set(ctx, "b", []byte("22"), 0)

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	stats := cache.Stats()
	if stats.Items != 0 || stats.Size != 0 {
		t.Errorf("after Clear: items=%d size=%d, want 0/0", stats.Items, stats.Size)
	}
}

func TestMemoryCache_MaxSizeEvictsSoonestExpiry(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 2})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "soon", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "later", []byte("2"), time.Hour)
	_ = cache.Set(ctx, "new", []byte("3"), time.Hour)

	if _, err := cache.Get(ctx, "soon"); err != ErrCacheMiss {
		t.Error("soon should have been evicted")
	}
	for _, key := range []string{"later", "new"} {
		if _, err := cache.Get(ctx, key); err != nil {
			t.Errorf("%s should be present: %v", key, err)
		}
	}

	// Overwriting an existing key does not evict.
	_ = cache.Set(ctx, "new", []byte("4"), time.Hour)
	if cache.Stats().Items != 2 {
		t.Errorf("Items = %d, want 2", cache.Stats().Items)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "k", []byte("abcd"), 0)
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "missing")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("stats = %+v, want 2 hits, 1 miss, 1 set", stats)
	}
	if stats.Size != 4 || stats.Items != 1 {
		t.Errorf("size=%d items=%d, want 4/1", stats.Size, stats.Items)
	}

	cache.ResetStats()
	if s := cache.Stats(); s.Hits != 0 || s.Misses != 0 || s.Sets != 0 {
		t.Errorf("after ResetStats = %+v", s)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("value")
	_ = cache.Set(ctx, "k", original, 0)
	original[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "value" {
		t.Errorf("stored value mutated: %q", got)
	}
	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "value" {
		t.Errorf("returned value aliases storage: %q", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 50})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d-%d", n, j%20)
				_ = cache.Set(ctx, key, []byte("v"), 0)
				_, _ = cache.Get(ctx, key)
				if j%10 == 0 {
					_ = cache.DeleteByPrefix(ctx, fmt.Sprintf("k%d-", n))
				}
			}
		}(i)
	}
	wg.Wait()

	if items := cache.Stats().Items; items > 50 {
		t.Errorf("Items = %d, exceeds MaxSize 50", items)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := cache.Set(ctx, "k", []byte("v"), 0); err != ErrCacheClosed {
		t.Errorf("Set after Close = %v, want ErrCacheClosed", err)
	}
	if _, err := cache.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Get after Close = %v, want ErrCacheClosed", err)
	}
}
