//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return config.RedisConfig{Host: host, Port: port.Int()}
}

func TestRedisDirectoryCache_Integration(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	staff, customer := staffParty(), customerParty()
	backing := newStubDirectory(staff, customer)
	prefix := fmt.Sprintf("test:%d:", time.Now().UnixNano())
	c := NewRedisDirectoryCache(client, backing, WithRedisKeyPrefix(prefix), WithRedisTTL(time.Minute))
	refs := []collections.Reference{staff.Reference, customer.Reference}

	got, err := c.Resolve(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, staff, got[staff.Reference])
	assert.Equal(t, 1, backing.callCount())

	t.Run("second lookup is served from redis", func(t *testing.T) {
		got, err := c.Resolve(ctx, refs)
		require.NoError(t, err)
		assert.Equal(t, customer, got[customer.Reference])
		assert.Equal(t, 1, backing.callCount())

		ttl, err := client.TTL(ctx, partyKey(prefix, staff.Reference)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("corrupt entries are dropped and reloaded", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, partyKey(prefix, staff.Reference), "garbage", time.Minute).Err())

		got, err := c.Resolve(ctx, []collections.Reference{staff.Reference})
		require.NoError(t, err)
		assert.Equal(t, staff, got[staff.Reference])
		assert.Equal(t, 2, backing.callCount())
	})

	t.Run("invalidate removes the key", func(t *testing.T) {
		require.NoError(t, c.Invalidate(ctx, customer.Reference))
		n, err := client.Exists(ctx, partyKey(prefix, customer.Reference)).Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
