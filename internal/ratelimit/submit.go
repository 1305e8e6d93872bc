package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/kraalhq/kraal/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keySubmitSeller = "ratelimit:submit:seller:%s"

// SubmitLimiter throttles offer submissions per seller. It fails open:
// without redis, or on redis errors, every submission is allowed.
type SubmitLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger

	rate  float64
	burst int
}

func NewSubmitLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *SubmitLimiter {
	if client == nil || cfg.SubmitRatePerMinute <= 0 || cfg.SubmitBurst <= 0 {
		return nil
	}
	return &SubmitLimiter{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit.submit"),
		rate:   float64(cfg.SubmitRatePerMinute) / 60.0,
		burst:  cfg.SubmitBurst,
	}
}

// Allow reports whether the seller may submit another offer now, and how
// long to wait when not.
func (l *SubmitLimiter) Allow(ctx context.Context, sellerID string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keySubmitSeller, sellerID), l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing", zap.Error(err))
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}
