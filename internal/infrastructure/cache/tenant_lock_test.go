package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisLock(t *testing.T, ttl time.Duration) (*RedisTenantLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTenantLock(client, "", ttl), mr
}

func TestRedisTenantLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire fails until release", func(t *testing.T) {
		lock, mr := newRedisLock(t, time.Minute)

		release, err := lock.Acquire(ctx, "2025_bu01")
		require.NoError(t, err)
		assert.True(t, mr.Exists("tenantdb:lock:2025_bu01"))

		_, err = lock.Acquire(ctx, "2025_bu01")
		assert.ErrorIs(t, err, tenant.ErrTenantLocked)

		other, err := lock.Acquire(ctx, "2025_bu02")
		require.NoError(t, err)
		other()

		release()
		assert.False(t, mr.Exists("tenantdb:lock:2025_bu01"))

		release2, err := lock.Acquire(ctx, "2025_bu01")
		require.NoError(t, err)
		release2()
	})

	t.Run("expired lock can be taken and is not released by the old holder", func(t *testing.T) {
		lock, mr := newRedisLock(t, time.Second)

		stale, err := lock.Acquire(ctx, "2025_bu01")
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		fresh, err := lock.Acquire(ctx, "2025_bu01")
		require.NoError(t, err)

		stale()
		assert.True(t, mr.Exists("tenantdb:lock:2025_bu01"))

		fresh()
		assert.False(t, mr.Exists("tenantdb:lock:2025_bu01"))
	})

	t.Run("held lock is renewed until release", func(t *testing.T) {
		lock, mr := newRedisLock(t, 300*time.Millisecond)
		key := "tenantdb:lock:2025_bu01"

		release, err := lock.Acquire(ctx, "2025_bu01")
		require.NoError(t, err)

		mr.FastForward(250 * time.Millisecond)
		require.Less(t, mr.TTL(key), 100*time.Millisecond)
		require.Eventually(t, func() bool {
			return mr.TTL(key) > 200*time.Millisecond
		}, 2*time.Second, 10*time.Millisecond)

		release()
		assert.False(t, mr.Exists(key))
		release()
	})

	t.Run("renewal stops once another holder owns the key", func(t *testing.T) {
		lock, mr := newRedisLock(t, 300*time.Millisecond)
		key := "tenantdb:lock:2025_bu01"

		stale, err := lock.Acquire(ctx, "2025_bu01")
		require.NoError(t, err)
		defer stale()

		require.NoError(t, mr.Set(key, "other-run"))
		mr.SetTTL(key, time.Minute)
		time.Sleep(250 * time.Millisecond)

		got, err := mr.Get(key)
		require.NoError(t, err)
		assert.Equal(t, "other-run", got)
		assert.Greater(t, mr.TTL(key), 30*time.Second)
	})

	t.Run("redis failure is reported", func(t *testing.T) {
		lock, mr := newRedisLock(t, time.Minute)
		mr.Close()

		_, err := lock.Acquire(ctx, "2025_bu01")
		require.Error(t, err)
		assert.NotErrorIs(t, err, tenant.ErrTenantLocked)
	})
}

func TestInMemoryTenantLock(t *testing.T) {
	lock := NewInMemoryTenantLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "2025_bu01")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "2025_bu01")
	assert.ErrorIs(t, err, tenant.ErrTenantLocked)

	release()
	release()

	again, err := lock.Acquire(ctx, "2025_bu01")
	require.NoError(t, err)
	again()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = lock.Acquire(cancelled, "2025_bu02")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTenantLocker(t *testing.T) {
	t.Run("disabled redis yields an in-memory lock", func(t *testing.T) {
		locker, closeFn, err := NewTenantLocker(config.RedisConfig{}, time.Minute, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &InMemoryTenantLock{}, locker)
		assert.NoError(t, closeFn())
	})

	t.Run("enabled redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		locker, closeFn, err := NewTenantLocker(config.RedisConfig{
			Enabled: true, Host: mr.Host(), Port: port,
		}, time.Minute, zap.NewNop())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &RedisTenantLock{}, locker)
	})

	t.Run("unreachable redis is an error", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, _ := strconv.Atoi(mr.Port())
		mr.Close()

		_, _, err := NewTenantLocker(config.RedisConfig{
			Enabled: true, Host: "127.0.0.1", Port: port,
		}, time.Minute, zap.NewNop())
		assert.Error(t, err)
	})
}
