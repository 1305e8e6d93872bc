// Package domain contains the outbox model for marketplace events.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Topics consumed by the external notification and order collaborators.
// Delivery is at-least-once; draining the outbox is outside this core.
const (
	TopicOfferCreated     = "offer.created"
	TopicOfferExpired     = "offer.expired"
	TopicOfferWithdrawn   = "offer.withdrawn"
	TopicOrderCreated     = "order.created"
	TopicRequestCancelled = "request.cancelled"
)

// OrderDedupeKey identifies the single order event a buy request may
// ever emit. The settlement statement reads the accept-time figures back
// through this key.
func OrderDedupeKey(requestID string) string {
	return "order:" + requestID
}

// MarketEvent is an outbox row written in the same transaction as the
// state change it announces.
type MarketEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	Topic       string         `gorm:"type:text;not null;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	DedupeKey   *string        `gorm:"type:text;uniqueIndex:ux_market_event_dedupe"`
	Published   bool           `gorm:"not null;default:false;index"`
	PublishedAt *time.Time     `gorm:""`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MarketEvent) TableName() string { return "market_events" }
