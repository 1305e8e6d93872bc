package service

import (
	"testing"

	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/money"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) settlementdomain.Service {
	t.Helper()
	return NewService(ServiceParam{
		Log:      zap.NewNop(),
		Schedule: config.NewStaticFeeScheduleHolder(config.DefaultFeeSchedule()),
	})
}

func standardRates() settlementdomain.FeeRates {
	return settlementdomain.FeeRates{
		ProcessingRateBps: 150,  // 1.5%
		EscrowFlatFee:     2500, // R25.00
		CommissionRateBps: 1000, // 10%
		PayoutFeeRateBps:  200,  // 2%
	}
}

func TestComputeBreakdown_BuyerPays(t *testing.T) {
	svc := newTestService(t)

	b, err := svc.ComputeBreakdown(100000, settlementdomain.CommissionModelBuyerPays, standardRates())
	require.NoError(t, err)

	assert.Equal(t, money.Amount(1500), b.ProcessingFee)
	assert.Equal(t, money.Amount(2500), b.EscrowFee)
	assert.Equal(t, money.Amount(10000), b.Commission)
	assert.Equal(t, money.Amount(14000), b.TotalBuyerFees)
	assert.Equal(t, money.Amount(114000), b.GrandTotal)

	assert.Equal(t, money.Amount(2000), b.PayoutFee)
	assert.Equal(t, money.Amount(2000), b.TotalSellerDeductions)
	assert.Equal(t, money.Amount(98000), b.NetToSeller)
	assert.Equal(t, money.Amount(12000), b.NetToPlatform)
}

func TestComputeBreakdown_SellerPays(t *testing.T) {
	svc := newTestService(t)

	b, err := svc.ComputeBreakdown(100000, settlementdomain.CommissionModelSellerPays, standardRates())
	require.NoError(t, err)

	assert.Equal(t, money.Amount(4000), b.TotalBuyerFees)
	assert.Equal(t, money.Amount(104000), b.GrandTotal)
	assert.Equal(t, money.Amount(12000), b.TotalSellerDeductions)
	assert.Equal(t, money.Amount(88000), b.NetToSeller)
	assert.Equal(t, money.Amount(12000), b.NetToPlatform)
}

// Total platform revenue must be invariant across commission models; only
// the buyer/seller split changes.
func TestComputeBreakdown_PlatformRevenueInvariance(t *testing.T) {
	svc := newTestService(t)

	amounts := []money.Amount{0, 1, 99, 100, 2500, 33333, 100000, 999999, 123456789}
	rateSets := []settlementdomain.FeeRates{
		standardRates(),
		{ProcessingRateBps: 0, EscrowFlatFee: 0, CommissionRateBps: 0, PayoutFeeRateBps: 0},
		{ProcessingRateBps: 275, EscrowFlatFee: 999, CommissionRateBps: 750, PayoutFeeRateBps: 125},
		{ProcessingRateBps: 10000, EscrowFlatFee: 1, CommissionRateBps: 10000, PayoutFeeRateBps: 10000},
	}

	for _, base := range amounts {
		for _, rates := range rateSets {
			buyer, err := svc.ComputeBreakdown(base, settlementdomain.CommissionModelBuyerPays, rates)
			require.NoError(t, err)
			seller, err := svc.ComputeBreakdown(base, settlementdomain.CommissionModelSellerPays, rates)
			require.NoError(t, err)

			assert.Equal(t, buyer.NetToPlatform, seller.NetToPlatform,
				"platform revenue diverged at base=%d", base)
			assert.Equal(t, buyer.Commission+buyer.PayoutFee, buyer.NetToPlatform)

			for _, b := range []settlementdomain.FeeBreakdown{buyer, seller} {
				assert.Equal(t, b.GrandTotal, b.BaseAmount+b.TotalBuyerFees)
				assert.Equal(t, b.BaseAmount, b.NetToSeller+b.TotalSellerDeductions)
				assert.NoError(t, b.Verify())
			}
		}
	}
}

func TestComputeBreakdown_Deterministic(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.ComputeBreakdown(123457, settlementdomain.CommissionModelSellerPays, standardRates())
	require.NoError(t, err)
	second, err := svc.ComputeBreakdown(123457, settlementdomain.CommissionModelSellerPays, standardRates())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeBreakdown_InvalidInputs(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ComputeBreakdown(-1, settlementdomain.CommissionModelBuyerPays, standardRates())
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidAmount)

	rates := standardRates()
	rates.CommissionRateBps = -1
	_, err = svc.ComputeBreakdown(100, settlementdomain.CommissionModelBuyerPays, rates)
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidRate)

	rates = standardRates()
	rates.ProcessingRateBps = 10001
	_, err = svc.ComputeBreakdown(100, settlementdomain.CommissionModelBuyerPays, rates)
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidRate)

	rates = standardRates()
	rates.EscrowFlatFee = -1
	_, err = svc.ComputeBreakdown(100, settlementdomain.CommissionModelBuyerPays, rates)
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidRate)

	_, err = svc.ComputeBreakdown(100, settlementdomain.CommissionModel("platform_pays"), standardRates())
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidCommissionModel)
}

func TestSettle_UsesLiveSchedule(t *testing.T) {
	schedule := config.DefaultFeeSchedule()
	schedule.CommissionModel = config.CommissionModelBuyerPays
	svc := NewService(ServiceParam{
		Log:      zap.NewNop(),
		Schedule: config.NewStaticFeeScheduleHolder(schedule),
	})

	b, err := svc.Settle(100000)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.CommissionModelBuyerPays, b.CommissionModel)
	assert.Equal(t, money.Amount(114000), b.GrandTotal)
}
