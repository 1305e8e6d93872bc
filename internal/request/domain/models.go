// Package domain contains the buy request model and lifecycle contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kraalhq/kraal/internal/money"
)

// RequestStatus is the buy request lifecycle state. OPEN accepts offers;
// CLOSED means one offer was accepted; CANCELLED means the buyer withdrew
// the request before any acceptance.
type RequestStatus string

const (
	RequestStatusOpen      RequestStatus = "OPEN"
	RequestStatusClosed    RequestStatus = "CLOSED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// BuyRequest is a buyer's open solicitation for livestock at or below a
// price ceiling. Requests are archived on terminal transitions, never
// deleted.
type BuyRequest struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	BuyerID         snowflake.ID  `gorm:"not null;index" json:"buyer_id"`
	Species         string        `gorm:"type:text;not null" json:"species"`
	Quantity        int64         `gorm:"not null" json:"quantity"`
	Unit            string        `gorm:"type:text;not null" json:"unit"`
	MaxPricePerUnit money.Amount  `gorm:"not null" json:"max_price_per_unit"`
	Province        string        `gorm:"type:text" json:"province"`
	Status          RequestStatus `gorm:"type:text;not null;index" json:"status"`
	Archived        bool          `gorm:"not null;default:false" json:"archived"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BuyRequest) TableName() string { return "buy_requests" }

func (r *BuyRequest) IsOpen() bool { return r.Status == RequestStatusOpen }
