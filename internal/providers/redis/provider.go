// Package redis provides the shared redis client. The client is optional:
// a nil client disables the rate limiter and the match score cache.
package redis

import (
	"github.com/kraalhq/kraal/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, dependent features disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)
