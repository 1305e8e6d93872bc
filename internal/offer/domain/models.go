// Package domain contains the offer model and negotiation contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kraalhq/kraal/internal/money"
)

// DeliveryMode describes how the stock reaches the buyer.
type DeliveryMode string

const (
	DeliverySellerDelivers  DeliveryMode = "SELLER_DELIVERS"
	DeliveryBuyerCollects   DeliveryMode = "BUYER_COLLECTS"
	DeliveryRequestForQuote DeliveryMode = "REQUEST_FOR_QUOTE"
)

func (m DeliveryMode) Valid() bool {
	switch m {
	case DeliverySellerDelivers, DeliveryBuyerCollects, DeliveryRequestForQuote:
		return true
	default:
		return false
	}
}

// OfferStatus is the offer lifecycle state. ACTIVE is the only
// non-terminal state; ACCEPTED, EXPIRED, and WITHDRAWN are terminal.
type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusExpired   OfferStatus = "EXPIRED"
	OfferStatusWithdrawn OfferStatus = "WITHDRAWN"
)

// Withdrawal reasons carried on offer.withdrawn events.
const (
	WithdrawReasonSiblingAccepted = "sibling_accepted"
	WithdrawReasonSellerWithdrawn = "seller_withdrawn"
)

// ValidityDaysAllowed is the set of validity windows a seller may pick.
var ValidityDaysAllowed = map[int]bool{1: true, 3: true, 7: true, 14: true, 30: true}

// Offer is a seller's time-bounded proposal against a buy request.
// Derived pricing is never persisted; it is recomputed from these fields
// at every use so quantity or distance edits can never leave a stale
// surcharge behind.
type Offer struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	RequestID          snowflake.ID `gorm:"not null;index" json:"request_id"`
	SellerID           snowflake.ID `gorm:"not null;index" json:"seller_id"`
	Quantity           int64        `gorm:"not null" json:"quantity"`
	UnitPrice          money.Amount `gorm:"not null" json:"unit_price"`
	DeliveryMode       DeliveryMode `gorm:"type:text;not null" json:"delivery_mode"`
	AbattoirFeePerUnit money.Amount `gorm:"not null;default:0" json:"abattoir_fee_per_unit"`
	DistanceKm         *int64       `gorm:"" json:"distance_km,omitempty"`
	ValidityDays       int          `gorm:"not null" json:"validity_days"`
	Notes              string       `gorm:"type:text" json:"notes,omitempty"`
	Status             OfferStatus  `gorm:"type:text;not null;index" json:"status"`
	WithdrawReason     *string      `gorm:"type:text" json:"withdraw_reason,omitempty"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt          time.Time    `gorm:"not null;index" json:"expires_at"`
}

// TableName sets the database table name.
func (Offer) TableName() string { return "offers" }

// ExpiredAt reports whether the offer's validity window has lapsed at now.
func (o *Offer) ExpiredAt(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}

// EffectiveStatus is the read-time status: an ACTIVE offer past expiry is
// reported EXPIRED even before the background sweep persists that
// transition.
func (o *Offer) EffectiveStatus(now time.Time) OfferStatus {
	if o.Status == OfferStatusActive && o.ExpiredAt(now) {
		return OfferStatusExpired
	}
	return o.Status
}

// TimeRemaining is the derived validity countdown, clamped at zero.
func (o *Offer) TimeRemaining(now time.Time) time.Duration {
	remaining := o.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Pricing is the derived cost composition of an offer.
type Pricing struct {
	Subtotal          money.Amount `json:"subtotal"`
	DeliverySurcharge money.Amount `json:"delivery_surcharge"`
	AbattoirTotal     money.Amount `json:"abattoir_total"`
	OfferTotal        money.Amount `json:"offer_total"`
}

// ComputePricing derives the offer's cost composition from its current
// fields and the surcharge rates.
func (o *Offer) ComputePricing(minFlatFee, perKmPerUnit money.Amount) Pricing {
	subtotal := money.Amount(o.Quantity) * o.UnitPrice
	surcharge := DeliverySurcharge(o.DeliveryMode, o.DistanceKm, o.Quantity, minFlatFee, perKmPerUnit)

	var abattoir money.Amount
	if o.DeliveryMode == DeliveryRequestForQuote {
		abattoir = o.AbattoirFeePerUnit * money.Amount(o.Quantity)
	}

	return Pricing{
		Subtotal:          subtotal,
		DeliverySurcharge: surcharge,
		AbattoirTotal:     abattoir,
		OfferTotal:        subtotal + surcharge + abattoir,
	}
}

// View is an offer annotated with its derived fields for the read surface.
type View struct {
	Offer
	Pricing              Pricing     `json:"pricing"`
	EffectiveStatusField OfferStatus `json:"effective_status"`
	TimeRemainingSecs    int64       `json:"time_remaining_seconds"`
	MatchScore           *float64    `json:"match_score,omitempty"`
}
