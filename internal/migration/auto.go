package migration

import (
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	"gorm.io/gorm"
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&requestdomain.BuyRequest{},
		&offerdomain.Offer{},
		&eventdomain.MarketEvent{},
	)
}
