package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TenantLocker is implemented by RedisTenantLock and InMemoryTenantLock
type TenantLocker interface {
	Acquire(ctx context.Context, schema string) (release func(), err error)
}

// NewTenantLocker returns a Redis lock when Redis is enabled, otherwise an
// in-process lock. An enabled but unreachable Redis is an error: falling back
// would silently drop cross-process exclusion.
func NewTenantLocker(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (TenantLocker, func() error, error) {
	if !cfg.Enabled {
		logger.Info("Redis disabled, tenant locks are process-local")
		return NewInMemoryTenantLock(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Tenant locks backed by Redis", zap.String("addr", cfg.Addr()), zap.Duration("ttl", ttl))
	return NewRedisTenantLock(client, "", ttl), client.Close, nil
}
