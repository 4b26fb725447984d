package cache

//go:generate go run go.uber.org/mock/mockgen -source=./cache.go -destination=./mocks/cache_mock.go -package=mocks

import (
	"context"
	"hotel/config"
	"hotel/infras/otel"
	"hotel/infras/redis"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	otelScopeName         = "cache"
	otelCacheKeyAttribute = "cache.key"

	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Nil is returned by Get when the key does not exist.
const Nil = goRedis.Nil

// Cache is a key/value store with per-key expiry. It is never the source of truth.
type Cache interface {
	Save(ctx context.Context, key string, value any, duration int) (err error)
	Get(ctx context.Context, key string, value any) (err error)
	Delete(ctx context.Context, key string) error
	// Clear removes every key matching the glob pattern.
	Clear(ctx context.Context, pattern string) error
}

func New(cfg *config.Config, ot otel.Otel) Cache {
	if cfg.Cache.Driver == DriverMemory {
		log.Info().Msg("Using in-memory cache")

		return NewMemoryCache(ot)
	}

	return NewRedisCache(redis.New(cfg), ot)
}
