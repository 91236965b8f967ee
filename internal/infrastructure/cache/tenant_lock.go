// Package cache holds the cross-process coordination backed by Redis.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "tenantdb:lock:"

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another run is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the TTL only while the key still holds our token
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisTenantLock serializes runs on the same tenant across processes.
// The TTL bounds how long a crashed run can keep a tenant locked; a live
// holder renews it every third of the TTL until release.
type RedisTenantLock struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTenantLock creates a lock over an existing client
func NewRedisTenantLock(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisTenantLock {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisTenantLock{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Acquire takes the lock of schema or returns tenant.ErrTenantLocked.
// The returned release func stops the renewal and deletes the key.
func (l *RedisTenantLock) Acquire(ctx context.Context, schema string) (func(), error) {
	key := l.keyPrefix + schema
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", schema, tenant.ErrTenantLocked)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		})
	}, nil
}

// keepAlive renews the TTL until stop is closed or the key changes hands
func (l *RedisTenantLock) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			renewed, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && renewed == 0 {
				return
			}
		}
	}
}

// InMemoryTenantLock serializes runs on the same tenant within one process
type InMemoryTenantLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewInMemoryTenantLock creates an empty lock table
func NewInMemoryTenantLock() *InMemoryTenantLock {
	return &InMemoryTenantLock{held: make(map[string]struct{})}
}

// Acquire takes the lock of schema or returns tenant.ErrTenantLocked
func (l *InMemoryTenantLock) Acquire(ctx context.Context, schema string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[schema]; busy {
		return nil, fmt.Errorf("%s: %w", schema, tenant.ErrTenantLocked)
	}
	l.held[schema] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, schema)
			l.mu.Unlock()
		})
	}, nil
}
