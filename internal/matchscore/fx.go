package matchscore

import "go.uber.org/fx"

var Module = fx.Module("matchscore",
	fx.Provide(NewRedisProvider),
)
