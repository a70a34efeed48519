package settings

import (
	"context"
	"sync"
	"time"
)

type cachedValue struct {
	value     string
	ok        bool
	expiresAt time.Time
}

// CachedProvider memoizes another Provider for a fixed TTL.
// Errors are never cached.
type CachedProvider struct {
	next Provider
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedValue
}

// NewCachedProvider wraps next with a TTL cache.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedValue),
	}
}

// Get implements Provider.
func (c *CachedProvider) Get(ctx context.Context, group, key string) (string, bool, error) {
	k := group + "." + key
	now := c.now()

	c.mu.RLock()
	e, hit := c.entries[k]
	c.mu.RUnlock()
	if hit && now.Before(e.expiresAt) {
		return e.value, e.ok, nil
	}

	value, ok, err := c.next.Get(ctx, group, key)
	if err != nil {
		return "", false, err
	}

	c.mu.Lock()
	c.entries[k] = cachedValue{value: value, ok: ok, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return value, ok, nil
}

// Invalidate drops every cached entry.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cachedValue)
	c.mu.Unlock()
}

var _ Provider = (*CachedProvider)(nil)
