package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), server
}

func TestRedisTryAcquire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker, server := newRedisLocker(t, 10*time.Second)
	key := ChurchKey("church-1")

	lease, err := locker.TryAcquire(ctx, key)
	require.NoError(t, err)
	require.True(t, server.Exists(keyPrefix+key))
	assert.Equal(t, 10*time.Second, server.TTL(keyPrefix+key))

	_, err = locker.TryAcquire(ctx, key)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := locker.TryAcquire(ctx, ChurchKey("church-2"))
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, server.Exists(keyPrefix+key))

	again, err := locker.TryAcquire(ctx, key)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisReleaseChecksToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker, server := newRedisLocker(t, time.Second)
	key := ChurchKey("church-1")

	stale, err := locker.TryAcquire(ctx, key)
	require.NoError(t, err)

	// The first holder outlives its TTL and someone else takes the lock.
	server.FastForward(2 * time.Second)
	require.False(t, server.Exists(keyPrefix+key))
	current, err := locker.TryAcquire(ctx, key)
	require.NoError(t, err)
	token, err := server.Get(keyPrefix + key)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	held, err := server.Get(keyPrefix + key)
	require.NoError(t, err)
	assert.Equal(t, token, held)

	require.NoError(t, current.Release(ctx))
	assert.False(t, server.Exists(keyPrefix+key))
}

func TestRedisDefaultsAndServerErrors(t *testing.T) {
	t.Parallel()

	locker, server := newRedisLocker(t, 0)
	assert.Equal(t, DefaultTTL, locker.ttl)

	server.Close()
	_, err := locker.TryAcquire(context.Background(), ChurchKey("church-1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)
}
