package cache

import (
	"context"
	"fmt"

	"github.com/couchcryptid/case-enrichment-etl/internal/config"
)

// Open connects the backend selected by CACHE_BACKEND.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return NewMemoryStore(cfg.CacheMemorySize), nil
	case config.CacheRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case config.CacheSQLite:
		return NewSQLiteStore(ctx, cfg.CacheSQLitePath)
	case config.CachePostgres:
		return NewPostgresStore(ctx, cfg.CacheDatabaseURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
