package migration

import (
	"github.com/kraalhq/kraal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		// SQL migrations target postgres; other dialects rely on AutoMigrate
		// in development setups.
		if cfg.DBType != "postgres" {
			log.Info("skipping sql migrations", zap.String("driver", cfg.DBType))
			return autoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
