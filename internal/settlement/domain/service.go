package domain

import (
	"errors"

	"github.com/kraalhq/kraal/internal/money"
)

// Service computes fee breakdowns. ComputeBreakdown is pure and
// CPU-only; Settle applies the live fee schedule to a base amount.
type Service interface {
	ComputeBreakdown(base money.Amount, model CommissionModel, rates FeeRates) (FeeBreakdown, error)
	Settle(base money.Amount) (FeeBreakdown, error)
	CurrentRates() (FeeRates, CommissionModel)
}

var (
	ErrInvalidAmount          = errors.New("invalid_amount")
	ErrInvalidRate            = errors.New("invalid_rate")
	ErrInvalidCommissionModel = errors.New("invalid_commission_model")
	ErrInvariantViolation     = errors.New("fee_invariant_violation")
)
