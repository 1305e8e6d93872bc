package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kraalhq/kraal/internal/clock"
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/event"
	"github.com/kraalhq/kraal/internal/logger"
	"github.com/kraalhq/kraal/internal/migration"
	"github.com/kraalhq/kraal/internal/observability"
	"github.com/kraalhq/kraal/internal/providers"
	"github.com/kraalhq/kraal/internal/server"
	"github.com/kraalhq/kraal/internal/sweeper"
	"github.com/kraalhq/kraal/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		providers.Module,
		event.Module,

		server.Module,
		sweeper.Module,
		migration.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
