package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/infrastructure/clock"
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry struct {
	value     collections.Resolved
	expiresAt time.Time
}

// InMemoryDirectoryCache is a process-local cache in front of another
// Directory. It suits single-instance deployments and tests.
type InMemoryDirectoryCache struct {
	mu      sync.RWMutex
	entries map[collections.Reference]cacheEntry
	next    collections.Directory
	ttl     time.Duration
	clock   clock.Clock

	hits   atomic.Int64
	misses atomic.Int64
}

// InMemoryDirectoryCacheOption is a functional option for configuring the cache
type InMemoryDirectoryCacheOption func(*InMemoryDirectoryCache)

// WithInMemoryTTL sets how long entries stay cached
func WithInMemoryTTL(ttl time.Duration) InMemoryDirectoryCacheOption {
	return func(c *InMemoryDirectoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInMemoryClock sets the time source used for expiry
func WithInMemoryClock(clk clock.Clock) InMemoryDirectoryCacheOption {
	return func(c *InMemoryDirectoryCache) {
		c.clock = clk
	}
}

// NewInMemoryDirectoryCache wraps next with a local cache
func NewInMemoryDirectoryCache(next collections.Directory, opts ...InMemoryDirectoryCacheOption) *InMemoryDirectoryCache {
	c := &InMemoryDirectoryCache{
		entries: make(map[collections.Reference]cacheEntry),
		next:    next,
		ttl:     defaultDirectoryTTL,
		clock:   clock.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve serves fresh entries locally and resolves the rest through the
// backing directory
func (c *InMemoryDirectoryCache) Resolve(ctx context.Context, refs []collections.Reference) (map[collections.Reference]collections.Resolved, error) {
	refs = dedupe(refs)
	out := make(map[collections.Reference]collections.Resolved, len(refs))
	now := c.clock.Now()

	var misses []collections.Reference
	c.mu.RLock()
	for _, ref := range refs {
		if e, ok := c.entries[ref]; ok && now.Before(e.expiresAt) {
			out[ref] = e.value
			continue
		}
		misses = append(misses, ref)
	}
	c.mu.RUnlock()

	c.hits.Add(int64(len(out)))
	c.misses.Add(int64(len(misses)))
	if len(misses) == 0 {
		return out, nil
	}

	found, err := c.next.Resolve(ctx, misses)
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(c.ttl)
	c.mu.Lock()
	for ref, resolved := range found {
		c.entries[ref] = cacheEntry{value: resolved, expiresAt: expiresAt}
		out[ref] = resolved
	}
	c.mu.Unlock()
	return out, nil
}

// Invalidate drops cached entries
func (c *InMemoryDirectoryCache) Invalidate(_ context.Context, refs ...collections.Reference) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ref := range refs {
		delete(c.entries, ref)
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped
func (c *InMemoryDirectoryCache) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for ref, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, ref)
			dropped++
		}
	}
	return dropped
}

// Stats returns the hit and miss counts since creation
func (c *InMemoryDirectoryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Ensure InMemoryDirectoryCache implements Directory
var _ collections.Directory = (*InMemoryDirectoryCache)(nil)
