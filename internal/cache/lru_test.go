package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("stats hits=%d misses=%d", hits, misses)
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Second)
	c.Set("fresh", "x")

	if _, ok := c.Get("k"); ok {
		t.Fatalf("k should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](5, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should be gone")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("len after purge = %d", c.Len())
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("no-ttl cache swept %d", n)
	}
}

func TestJanitorSweepAndStop(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](5, time.Millisecond)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Second)

	j := NewJanitor(time.Hour, nil)
	j.Register(c)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
