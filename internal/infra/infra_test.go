package infra

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache[string](time.Second)

	c.Set("key1", "value1")
	v, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v != "value1" {
		t.Fatalf("got %v, want value1", v)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache[int](time.Second)
	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[string](time.Millisecond)
	c.Set("key", "val")

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("key"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
	c.Cleanup()
	if c.Len() != 0 {
		t.Errorf("Len after Cleanup: got %d, want 0", c.Len())
	}
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache[string](0)
	c.Set("key", "val")
	if _, ok := c.Get("key"); ok {
		t.Fatal("expected a zero TTL cache to store nothing")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache[string](time.Hour)
	c.Set("key", "val")
	c.Invalidate("key")
	if _, ok := c.Get("key"); ok {
		t.Fatal("expected cache miss after invalidation")
	}
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksUntilCancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context error once the bucket is empty")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestNilRateLimiterIsUnlimited(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	if rl != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait: %v", err)
	}
}
