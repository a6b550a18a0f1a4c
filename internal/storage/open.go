package storage

import (
	"context"
	"fmt"

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/db"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/ikkim/storefront-cart/pkg/redis"
)

// Open builds the backend selected by cfg.Storage.Backend. Remote backends
// are wrapped in a circuit breaker.
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	sc := cfg.Storage

	logger.Info("Opening storage backend", map[string]interface{}{
		"backend": sc.Backend,
	})

	switch sc.Backend {
	case BackendMemory:
		return NewMemoryStorage(sc.QuotaBytes), nil

	case BackendFile:
		return NewFileStorage(sc.FilePath, sc.QuotaBytes)

	case BackendRedis:
		client, err := redis.Init(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewBreakerStorage("redis-storage", NewRedisStorage(client, sc.KeyPrefix, cfg.Redis.TTL), cfg.Breaker), nil

	case BackendDatabase:
		if err := db.Initialize(&cfg.Database); err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			return nil, err
		}
		return NewBreakerStorage("database-storage", NewDatabaseStorage(db.GetDB(), sc.KeyPrefix), cfg.Breaker), nil

	case BackendS3:
		return NewBreakerStorage("s3-storage", NewS3Storage(ctx, cfg.S3, sc.KeyPrefix), cfg.Breaker), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}
