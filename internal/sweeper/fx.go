package sweeper

import (
	"context"

	"github.com/kraalhq/kraal/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("sweeper",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(start),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Interval:  cfg.SweepInterval,
		BatchSize: cfg.SweepBatchSize,
	}
}

func start(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go s.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
