package service

import (
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/money"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log      *zap.Logger
	schedule *config.FeeScheduleHolder
}

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Schedule *config.FeeScheduleHolder
}

func NewService(p ServiceParam) settlementdomain.Service {
	return &Service{
		log:      p.Log.Named("settlement.service"),
		schedule: p.Schedule,
	}
}

// ComputeBreakdown splits base into buyer fees, seller deductions, and
// platform revenue under the given commission model. All arithmetic is
// integer minor units; each percentage fee is rounded half-up exactly
// once from the base amount, never from a rounded intermediate. Total
// platform revenue (commission + payout fee) is identical under both
// models; only the payer of the commission differs.
func (s *Service) ComputeBreakdown(
	base money.Amount,
	model settlementdomain.CommissionModel,
	rates settlementdomain.FeeRates,
) (settlementdomain.FeeBreakdown, error) {
	if base < 0 {
		return settlementdomain.FeeBreakdown{}, settlementdomain.ErrInvalidAmount
	}
	if !model.Valid() {
		return settlementdomain.FeeBreakdown{}, settlementdomain.ErrInvalidCommissionModel
	}
	if err := validateRates(rates); err != nil {
		return settlementdomain.FeeBreakdown{}, err
	}

	processing := money.PercentOf(base, rates.ProcessingRateBps)
	escrow := rates.EscrowFlatFee
	commission := money.PercentOf(base, rates.CommissionRateBps)
	payout := money.PercentOf(base, rates.PayoutFeeRateBps)

	breakdown := settlementdomain.FeeBreakdown{
		BaseAmount:      base,
		ProcessingFee:   processing,
		EscrowFee:       escrow,
		Commission:      commission,
		PayoutFee:       payout,
		NetToPlatform:   commission + payout,
		CommissionModel: model,
	}

	switch model {
	case settlementdomain.CommissionModelBuyerPays:
		breakdown.TotalBuyerFees = processing + escrow + commission
		breakdown.TotalSellerDeductions = payout
	case settlementdomain.CommissionModelSellerPays:
		breakdown.TotalBuyerFees = processing + escrow
		breakdown.TotalSellerDeductions = commission + payout
	}

	breakdown.GrandTotal = base + breakdown.TotalBuyerFees
	breakdown.NetToSeller = base - breakdown.TotalSellerDeductions

	if err := breakdown.Verify(); err != nil {
		s.log.Error("fee breakdown failed invariant check",
			zap.Int64("base_amount", int64(base)),
			zap.String("commission_model", string(model)),
		)
		return settlementdomain.FeeBreakdown{}, err
	}

	return breakdown, nil
}

// Settle computes a breakdown under the current fee schedule.
func (s *Service) Settle(base money.Amount) (settlementdomain.FeeBreakdown, error) {
	rates, model := s.CurrentRates()
	return s.ComputeBreakdown(base, model, rates)
}

func (s *Service) CurrentRates() (settlementdomain.FeeRates, settlementdomain.CommissionModel) {
	schedule := s.schedule.Get()
	return settlementdomain.RatesFromSchedule(schedule), settlementdomain.CommissionModel(schedule.CommissionModel)
}

func validateRates(rates settlementdomain.FeeRates) error {
	for _, bps := range []money.BasisPoints{
		rates.ProcessingRateBps,
		rates.CommissionRateBps,
		rates.PayoutFeeRateBps,
	} {
		if bps < 0 || bps > money.MaxRateBps {
			return settlementdomain.ErrInvalidRate
		}
	}
	if rates.EscrowFlatFee < 0 {
		return settlementdomain.ErrInvalidRate
	}
	return nil
}
