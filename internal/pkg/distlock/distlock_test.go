package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	first := NewLock(client, "tagmap:apply", time.Minute)
	second := NewLock(client, "tagmap:apply", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:tagmap:apply"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire a held lock")

	// Releasing a lock we do not own leaves it in place.
	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists("lock:tagmap:apply"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists("lock:tagmap:apply"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_Expires(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "tagmap:apply", 10*time.Second)
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	second := NewRedisLock(client, "tagmap:apply", 10*time.Second)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_AcquireErrorWhenServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err = NewRedisLock(client, "tagmap:apply", time.Minute).Acquire(context.Background())
	assert.Error(t, err)
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	key := "local-" + t.Name()

	first := NewLock(nil, key, time.Minute)
	second := NewLock(nil, key, time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	ok, _ = second.Acquire(ctx)
	assert.False(t, ok, "release by non-owner must not free the lock")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx))
}

func TestLocalLock_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := NewLocalLock("local-canceled").Acquire(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLock_ExtendOutlivesOriginalTTL(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "tagmap:apply", time.Minute)
	rival := NewRedisLock(client, "tagmap:apply", time.Minute)

	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	var rivalGot []bool
	for i := 0; i < 3; i++ {
		mr.FastForward(40 * time.Second)
		require.NoError(t, holder.Extend(ctx))
		ok, err := rival.Acquire(ctx)
		require.NoError(t, err)
		rivalGot = append(rivalGot, ok)
	}
	assert.Equal(t, []bool{false, false, false}, rivalGot)
	assert.True(t, mr.TTL("lock:tagmap:apply") > 40*time.Second)
}

func TestRedisLock_ExtendAfterTakeover(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "tagmap:apply", 10*time.Second)
	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)
	assert.ErrorIs(t, holder.Extend(ctx), ErrLockLost, "expired key")

	rival := NewRedisLock(client, "tagmap:apply", 10*time.Second)
	ok, err = rival.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, holder.Extend(ctx), ErrLockLost, "key owned by rival")
	v, err := mr.Get("lock:tagmap:apply")
	require.NoError(t, err)
	assert.Equal(t, rival.value, v)
}

func TestLocalLock_Extend(t *testing.T) {
	lock := NewLocalLock("local-" + t.Name())
	assert.NoError(t, lock.Extend(context.Background()))
}
