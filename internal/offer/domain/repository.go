package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists offers. Every lifecycle transition out of ACTIVE is
// a conditional update guarded on the current row state so concurrent
// accept, withdraw, and sweep operations serialize at the store.
type Repository interface {
	Create(ctx context.Context, offer *Offer) error
	FindByID(ctx context.Context, id snowflake.ID) (*Offer, error)
	FindForRequest(ctx context.Context, requestID snowflake.ID) ([]*Offer, error)

	// AcceptIfLive transitions ACTIVE -> ACCEPTED only while the offer is
	// still inside its validity window at now.
	AcceptIfLive(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	// WithdrawIfActive transitions ACTIVE -> WITHDRAWN with a reason.
	WithdrawIfActive(ctx context.Context, tx *gorm.DB, id snowflake.ID, reason string) (bool, error)

	// WithdrawSiblings moves every other ACTIVE offer on the request to
	// WITHDRAWN and returns the ids it transitioned.
	WithdrawSiblings(ctx context.Context, tx *gorm.DB, requestID, acceptedID snowflake.ID) ([]snowflake.ID, error)

	// ListExpiredActive returns ACTIVE offers whose expiry has passed.
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*Offer, error)

	// ExpireIfActive transitions ACTIVE -> EXPIRED only if the offer is
	// still ACTIVE and past expiry; a concurrently accepted offer is left
	// alone.
	ExpireIfActive(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}
