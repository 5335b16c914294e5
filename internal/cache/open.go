package cache

import (
	"context"

	"github.com/iwvelando/calculator-hub/internal/config"
	"go.uber.org/zap"
)

// Open builds the backend selected by cfg. An unreachable redis falls back to
// the memory backend so the site keeps serving.
func Open(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := Options{MaxAge: cfg.DefaultMaxAge, StaleWhileRevalidate: cfg.StaleWhileRevalidate}

	if cfg.Backend == "redis" && cfg.RedisAddr != "" {
		c, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, defaults, logger)
		if err == nil {
			logger.Info("using redis response cache",
				zap.String("op", "cache.Open"),
				zap.String("addr", cfg.RedisAddr),
			)
			return c
		}
		logger.Warn("redis unavailable, falling back to memory cache",
			zap.String("op", "cache.Open"),
			zap.Error(err),
		)
	}
	return NewMemory(cfg.MaxItems, defaults)
}
