// Package infra provides the transport used to fetch rendered charts:
// an HTTP client with retries, a circuit breaker, rate limiting and an
// in-memory response cache.
package infra

import (
	"context"
	"sync"
	"time"
)

// --- In-memory cache ---

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL. A zero TTL disables it.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
	ttl     time.Duration
}

// NewCache creates a cache with the given TTL.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]cacheEntry[V]),
		ttl:     ttl,
	}
}

// Get returns the value for key unless it is missing or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key.
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries.
func (c *Cache[V]) Cleanup() {
	c.mu.Lock()
	now := time.Now()
	for k, v := range c.entries {
		if now.After(v.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// --- Rate limiter ---

// RateLimiter is a token bucket allowing maxTokens requests per window.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	window     time.Duration
	lastRefill time.Time
	poll       time.Duration
}

// NewRateLimiter returns nil, an unlimited limiter, when maxTokens or window
// is not positive.
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	if maxTokens <= 0 || window <= 0 {
		return nil
	}
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		window:     window,
		lastRefill: time.Now(),
		poll:       min(window/10, 100*time.Millisecond),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.poll):
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	elapsed := time.Since(rl.lastRefill)
	if elapsed < rl.window {
		return
	}
	periods := int(elapsed / rl.window)
	rl.tokens = min(rl.tokens+periods*rl.maxTokens, rl.maxTokens)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.window)
}
