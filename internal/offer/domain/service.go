package domain

import (
	"context"
	"errors"
	"time"

	"github.com/kraalhq/kraal/internal/money"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
)

type SubmitRequest struct {
	RequestID          string
	SellerID           string
	Quantity           int64
	UnitPrice          money.Amount
	DeliveryMode       DeliveryMode
	ValidityDays       int
	AbattoirFeePerUnit money.Amount
	DistanceKm         *int64
	Notes              string
}

// AcceptResult is the outcome of a successful acceptance: the accepted
// offer, its derived pricing, and the fee breakdown handed to the
// payment collaborator.
type AcceptResult struct {
	Offer     *Offer                        `json:"offer"`
	Pricing   Pricing                       `json:"pricing"`
	Breakdown settlementdomain.FeeBreakdown `json:"breakdown"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*View, error)
	List(ctx context.Context, requestID string) ([]View, error)
	Accept(ctx context.Context, requestID, offerID, buyerID string) (*AcceptResult, error)
	Withdraw(ctx context.Context, requestID, offerID, sellerID string) (*Offer, error)

	// SweepExpired transitions ACTIVE offers past their expiry to EXPIRED.
	// Idempotent; the buy request state is never touched.
	SweepExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

var (
	ErrOfferNotFound       = errors.New("offer_not_found")
	ErrOfferExpired        = errors.New("offer_expired")
	ErrOfferNotActive      = errors.New("offer_not_active")
	ErrNotOfferOwner       = errors.New("not_offer_owner")
	ErrInvalidSeller       = errors.New("invalid_seller")
	ErrQuantityExceeded    = errors.New("quantity_exceeded")
	ErrPriceExceedsCeiling = errors.New("price_exceeds_ceiling")
	ErrInvalidValidityDays = errors.New("invalid_validity_days")
	ErrInvalidDeliveryMode = errors.New("invalid_delivery_mode")
	ErrInvalidAbattoirFee  = errors.New("invalid_abattoir_fee")
	ErrInvalidDistance     = errors.New("invalid_distance")
)
