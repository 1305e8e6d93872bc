// Package matchscore attaches opaque scores from the external ranking
// oracle to request/offer pairings. Scores are display and sorting hints
// only; they never participate in fee or acceptance-eligibility logic.
package matchscore

import (
	"context"
	"strconv"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Provider looks up the oracle's score for an offer on a request.
// The second return reports whether a score is known.
type Provider interface {
	Score(ctx context.Context, requestID, offerID string) (float64, bool)
}

type noopProvider struct{}

func (noopProvider) Score(context.Context, string, string) (float64, bool) { return 0, false }

func NewNoopProvider() Provider { return noopProvider{} }

// redisProvider reads scores the external scoring pipeline writes into a
// per-request hash keyed by offer id.
type redisProvider struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisProvider(client *redis.Client, log *zap.Logger) Provider {
	if client == nil {
		return noopProvider{}
	}
	return &redisProvider{
		client: client,
		log:    log.Named("matchscore"),
	}
}

func (p *redisProvider) Score(ctx context.Context, requestID, offerID string) (float64, bool) {
	raw, err := p.client.HGet(ctx, "matchscore:"+requestID, offerID).Result()
	if err != nil {
		if err != redis.Nil {
			p.log.Debug("match score lookup failed", zap.Error(err))
		}
		return 0, false
	}

	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || score < 0 || score > 1 {
		return 0, false
	}
	return score, true
}
