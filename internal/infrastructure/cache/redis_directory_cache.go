package cache

import (
	"context"
	"errors"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultDirectoryTTL = 10 * time.Minute
	defaultKeyPrefix    = "collections:directory:"
)

// RedisDirectoryCache caches directory lookups in Redis in front of another
// Directory. Redis failures degrade to the backing directory.
type RedisDirectoryCache struct {
	client    redis.UniversalClient
	next      collections.Directory
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// RedisDirectoryCacheOption is a functional option for configuring the cache
type RedisDirectoryCacheOption func(*RedisDirectoryCache)

// WithRedisTTL sets how long resolved parties stay cached
func WithRedisTTL(ttl time.Duration) RedisDirectoryCacheOption {
	return func(c *RedisDirectoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisKeyPrefix sets the key namespace
func WithRedisKeyPrefix(prefix string) RedisDirectoryCacheOption {
	return func(c *RedisDirectoryCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisDirectoryCacheOption {
	return func(c *RedisDirectoryCache) {
		c.logger = logger
	}
}

// NewRedisDirectoryCache wraps next with a Redis cache. The caller keeps
// ownership of client.
func NewRedisDirectoryCache(client redis.UniversalClient, next collections.Directory, opts ...RedisDirectoryCacheOption) *RedisDirectoryCache {
	c := &RedisDirectoryCache{
		client:    client,
		next:      next,
		ttl:       defaultDirectoryTTL,
		keyPrefix: defaultKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve serves what it can from Redis and resolves the rest through the
// backing directory, caching what it finds. Unknown references are not cached.
func (c *RedisDirectoryCache) Resolve(ctx context.Context, refs []collections.Reference) (map[collections.Reference]collections.Resolved, error) {
	refs = dedupe(refs)
	out := make(map[collections.Reference]collections.Resolved, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	misses := c.lookup(ctx, refs, out)
	if len(misses) == 0 {
		return out, nil
	}

	found, err := c.next.Resolve(ctx, misses)
	if err != nil {
		return nil, err
	}
	for ref, resolved := range found {
		out[ref] = resolved
	}
	c.store(ctx, found)
	return out, nil
}

// lookup fills out from Redis and returns the references it could not serve
func (c *RedisDirectoryCache) lookup(ctx context.Context, refs []collections.Reference, out map[collections.Reference]collections.Resolved) []collections.Reference {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = partyKey(c.keyPrefix, ref)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Directory cache read failed, falling back to directory", zap.Error(err))
		return refs
	}

	var misses []collections.Reference
	var corrupt []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, refs[i])
			continue
		}
		resolved, err := decodeParty([]byte(raw), refs[i])
		if err != nil {
			c.logger.Warn("Dropping unreadable directory cache entry", zap.String("key", keys[i]), zap.Error(err))
			corrupt = append(corrupt, keys[i])
			misses = append(misses, refs[i])
			continue
		}
		out[refs[i]] = resolved
	}
	if len(corrupt) > 0 {
		_ = c.client.Del(ctx, corrupt...).Err()
	}
	return misses
}

func (c *RedisDirectoryCache) store(ctx context.Context, found map[collections.Reference]collections.Resolved) {
	if len(found) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for ref, resolved := range found {
		data, err := encodeParty(resolved)
		if err != nil {
			continue
		}
		pipe.Set(ctx, partyKey(c.keyPrefix, ref), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Directory cache write failed", zap.Int("entries", len(found)), zap.Error(err))
	}
}

// Invalidate drops cached entries so the next lookup reads the directory
func (c *RedisDirectoryCache) Invalidate(ctx context.Context, refs ...collections.Reference) error {
	refs = dedupe(refs)
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = partyKey(c.keyPrefix, ref)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ensure RedisDirectoryCache implements Directory
var _ collections.Directory = (*RedisDirectoryCache)(nil)
