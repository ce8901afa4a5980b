package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/infrastructure/clock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// stubDirectory serves a fixed set of parties and records every lookup
type stubDirectory struct {
	mu      sync.Mutex
	parties map[collections.Reference]collections.Resolved
	calls   [][]collections.Reference
	err     error
}

func newStubDirectory(parties ...collections.Resolved) *stubDirectory {
	d := &stubDirectory{parties: make(map[collections.Reference]collections.Resolved)}
	for _, p := range parties {
		d.parties[p.Reference] = p
	}
	return d
}

func (d *stubDirectory) Resolve(_ context.Context, refs []collections.Reference) (map[collections.Reference]collections.Resolved, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, refs)
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[collections.Reference]collections.Resolved)
	for _, ref := range refs {
		if p, ok := d.parties[ref]; ok {
			out[ref] = p
		}
	}
	return out, nil
}

func (d *stubDirectory) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func staffParty() collections.Resolved {
	return collections.Resolved{
		Reference:   collections.StaffRef(uuid.New()),
		DisplayName: "Morgan Lee",
		Email:       "morgan@example.com",
	}
}

func customerParty() collections.Resolved {
	return collections.Resolved{
		Reference:   collections.CustomerRef(uuid.New()),
		DisplayName: "Northwind Traders",
		Phone:       "+1-555-0142",
	}
}

func TestPartyCodec(t *testing.T) {
	p := customerParty()

	data, err := encodeParty(p)
	require.NoError(t, err)

	got, err := decodeParty(data, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = decodeParty(data, collections.StaffRef(p.ID))
	assert.Error(t, err, "an entry must not be served for a different kind")

	_, err = decodeParty([]byte("{not json"), p.Reference)
	assert.Error(t, err)
}

func TestPartyKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-0000-4000-8000-000000000001")
	assert.Equal(t, "dir:staff:6f1c2a4e-0000-4000-8000-000000000001", partyKey("dir:", collections.StaffRef(id)))
}

func TestDedupe(t *testing.T) {
	a := collections.StaffRef(uuid.New())
	b := collections.CustomerRef(uuid.New())
	assert.Equal(t, []collections.Reference{a, b}, dedupe([]collections.Reference{a, {}, b, a}))
}

func TestInMemoryDirectoryCache_Resolve(t *testing.T) {
	staff, customer := staffParty(), customerParty()
	backing := newStubDirectory(staff, customer)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	c := NewInMemoryDirectoryCache(backing, WithInMemoryTTL(time.Minute), WithInMemoryClock(clk))
	ctx := context.Background()
	refs := []collections.Reference{staff.Reference, customer.Reference}

	got, err := c.Resolve(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, staff, got[staff.Reference])
	assert.Equal(t, customer, got[customer.Reference])
	assert.Equal(t, 1, backing.callCount())

	t.Run("fresh entries are served locally", func(t *testing.T) {
		_, err := c.Resolve(ctx, refs)
		require.NoError(t, err)
		assert.Equal(t, 1, backing.callCount())

		hits, misses := c.Stats()
		assert.Equal(t, int64(2), hits)
		assert.Equal(t, int64(2), misses)
	})

	t.Run("expired entries are reloaded", func(t *testing.T) {
		clk.Advance(2 * time.Minute)
		_, err := c.Resolve(ctx, refs)
		require.NoError(t, err)
		assert.Equal(t, 2, backing.callCount())
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		require.NoError(t, c.Invalidate(ctx, staff.Reference))
		_, err := c.Resolve(ctx, refs)
		require.NoError(t, err)
		require.Equal(t, 3, backing.callCount())
		assert.Equal(t, []collections.Reference{staff.Reference}, backing.calls[2])
	})

	t.Run("purge drops expired entries", func(t *testing.T) {
		clk.Advance(2 * time.Minute)
		assert.Equal(t, 2, c.Purge())
	})
}

func TestInMemoryDirectoryCache_UnknownNotCached(t *testing.T) {
	backing := newStubDirectory()
	c := NewInMemoryDirectoryCache(backing)
	unknown := collections.StaffRef(uuid.New())

	for range 2 {
		got, err := c.Resolve(context.Background(), []collections.Reference{unknown})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 2, backing.callCount())
}

func TestInMemoryDirectoryCache_PropagatesDirectoryError(t *testing.T) {
	backing := newStubDirectory()
	backing.err = errors.New("directory unavailable")
	c := NewInMemoryDirectoryCache(backing)

	_, err := c.Resolve(context.Background(), []collections.Reference{collections.StaffRef(uuid.New())})
	assert.EqualError(t, err, "directory unavailable")
}

func TestRedisDirectoryCache_FallsBackWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	core, logs := observer.New(zapcore.WarnLevel)
	staff := staffParty()
	backing := newStubDirectory(staff)
	c := NewRedisDirectoryCache(client, backing, WithRedisLogger(zap.New(core)))

	got, err := c.Resolve(context.Background(), []collections.Reference{staff.Reference})
	require.NoError(t, err)
	assert.Equal(t, staff, got[staff.Reference])
	assert.Equal(t, 1, backing.callCount())
	assert.Equal(t, 1, logs.FilterMessage("Directory cache read failed, falling back to directory").Len())
	assert.Equal(t, 1, logs.FilterMessage("Directory cache write failed").Len())
}

func TestRedisDirectoryCache_EmptyInput(t *testing.T) {
	backing := newStubDirectory()
	c := NewRedisDirectoryCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), backing)

	got, err := c.Resolve(context.Background(), []collections.Reference{{}})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, backing.callCount())
	assert.NoError(t, c.Invalidate(context.Background()))
}
