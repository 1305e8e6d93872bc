package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, request *BuyRequest) error
	FindByID(ctx context.Context, id snowflake.ID) (*BuyRequest, error)
	ListOpen(ctx context.Context, afterID snowflake.ID, limit int) ([]*BuyRequest, error)

	// CloseIfOpen conditionally transitions OPEN -> CLOSED inside tx and
	// reports whether the caller won the transition. The condition is the
	// serialization point for concurrent accepts.
	CloseIfOpen(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error)

	// CancelIfOpen conditionally transitions OPEN -> CANCELLED.
	CancelIfOpen(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error)
}
