// Package sweeper runs the periodic offer expiry sweep.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/kraalhq/kraal/internal/clock"
	obsmetrics "github.com/kraalhq/kraal/internal/observability/metrics"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	"github.com/kraalhq/kraal/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("sweeper: invalid configuration")

const lockKey = "sweeper:lock"

// Config controls the sweep interval and batch size.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	return c
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	OfferSvc offerdomain.Service
	Locker   *ratelimit.Locker   `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Sweeper struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	offerSvc offerdomain.Service
	locker   *ratelimit.Locker
	metrics  *obsmetrics.Metrics
}

func New(p Params) (*Sweeper, error) {
	if p.Log == nil || p.Clock == nil || p.OfferSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Sweeper{
		log:      p.Log.Named("sweeper"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		offerSvc: p.OfferSvc,
		locker:   p.Locker,
		metrics:  p.Metrics,
	}, nil
}

// RunForever sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("sweep cycle failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes one sweep cycle and returns how many offers it
// expired. The distributed lock keeps concurrent instances from sweeping
// the same batch; losing the lock skips the cycle.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	token, ok, err := s.locker.TryLock(ctx, lockKey, s.cfg.Interval)
	if err != nil {
		s.log.Warn("sweep lock unavailable, proceeding", zap.Error(err))
	} else if !ok {
		return 0, nil
	}
	defer func() {
		if unlockErr := s.locker.Unlock(ctx, lockKey, token); unlockErr != nil {
			s.log.Warn("sweep unlock failed", zap.Error(unlockErr))
		}
	}()

	start := s.clock.Now()
	expired, err := s.offerSvc.SweepExpired(ctx, start, s.cfg.BatchSize)
	s.metrics.ObserveSweep(s.clock.Now().Sub(start))
	if err != nil {
		return expired, err
	}

	if expired > 0 {
		s.log.Info("sweep cycle complete", zap.Int("expired", expired))
	}
	return expired, nil
}
