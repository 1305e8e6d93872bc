package domain

import (
	"context"
	"errors"

	"github.com/kraalhq/kraal/internal/money"
	"github.com/kraalhq/kraal/pkg/db/pagination"
)

type CreateRequest struct {
	BuyerID         string
	Species         string
	Quantity        int64
	Unit            string
	MaxPricePerUnit money.Amount
	Province        string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*BuyRequest, error)
	Get(ctx context.Context, requestID string) (*BuyRequest, error)
	ListOpen(ctx context.Context, page pagination.Pagination) ([]*BuyRequest, *pagination.PageInfo, error)
	Cancel(ctx context.Context, requestID, buyerID string) (*BuyRequest, error)
}

var (
	ErrRequestNotFound      = errors.New("request_not_found")
	ErrRequestNotOpen       = errors.New("request_not_open")
	ErrRequestAlreadyClosed = errors.New("request_already_closed")
	ErrNotRequestOwner      = errors.New("not_request_owner")
	ErrInvalidBuyer         = errors.New("invalid_buyer")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidPriceCeiling  = errors.New("invalid_price_ceiling")
	ErrInvalidSpecies       = errors.New("invalid_species")
)
