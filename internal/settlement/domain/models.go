// Package domain defines the fee settlement value types.
package domain

import (
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/money"
)

// CommissionModel selects which party bears the platform commission.
type CommissionModel string

const (
	CommissionModelBuyerPays  CommissionModel = config.CommissionModelBuyerPays
	CommissionModelSellerPays CommissionModel = config.CommissionModelSellerPays
)

func (m CommissionModel) Valid() bool {
	return m == CommissionModelBuyerPays || m == CommissionModelSellerPays
}

// FeeRates carries the rates a breakdown is computed under. Percentage
// rates are basis points; the escrow fee is a flat minor-unit amount.
type FeeRates struct {
	ProcessingRateBps money.BasisPoints
	EscrowFlatFee     money.Amount
	CommissionRateBps money.BasisPoints
	PayoutFeeRateBps  money.BasisPoints
}

// RatesFromSchedule converts the live config schedule into FeeRates.
func RatesFromSchedule(s config.FeeSchedule) FeeRates {
	return FeeRates{
		ProcessingRateBps: money.BasisPoints(s.ProcessingRateBps),
		EscrowFlatFee:     money.Amount(s.EscrowFlatFee),
		CommissionRateBps: money.BasisPoints(s.CommissionRateBps),
		PayoutFeeRateBps:  money.BasisPoints(s.PayoutFeeRateBps),
	}
}

// FeeBreakdown is the deterministic split of a transaction amount into
// buyer fees, seller deductions, and platform revenue. It is always
// derived, never persisted on its own, and every field is an integer
// minor-unit amount.
type FeeBreakdown struct {
	BaseAmount            money.Amount    `json:"base_amount"`
	ProcessingFee         money.Amount    `json:"processing_fee"`
	EscrowFee             money.Amount    `json:"escrow_fee"`
	Commission            money.Amount    `json:"commission"`
	PayoutFee             money.Amount    `json:"payout_fee"`
	TotalBuyerFees        money.Amount    `json:"total_buyer_fees"`
	TotalSellerDeductions money.Amount    `json:"total_seller_deductions"`
	NetToSeller           money.Amount    `json:"net_to_seller"`
	NetToPlatform         money.Amount    `json:"net_to_platform"`
	GrandTotal            money.Amount    `json:"grand_total"`
	CommissionModel       CommissionModel `json:"commission_model"`
}

// Verify re-checks the three sum identities the breakdown must satisfy.
// A failure here means the calculator itself is broken and the enclosing
// transaction must abort.
func (b FeeBreakdown) Verify() error {
	if b.TotalBuyerFees+b.BaseAmount != b.GrandTotal {
		return ErrInvariantViolation
	}
	if b.NetToSeller+b.TotalSellerDeductions != b.BaseAmount {
		return ErrInvariantViolation
	}
	if b.NetToPlatform != b.Commission+b.PayoutFee {
		return ErrInvariantViolation
	}
	return nil
}
