package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFeeSchedule(t *testing.T) {
	assert.NoError(t, validateFeeSchedule(DefaultFeeSchedule()))

	bad := DefaultFeeSchedule()
	bad.CommissionRateBps = 10001
	assert.Error(t, validateFeeSchedule(bad))

	bad = DefaultFeeSchedule()
	bad.PayoutFeeRateBps = -1
	assert.Error(t, validateFeeSchedule(bad))

	bad = DefaultFeeSchedule()
	bad.EscrowFlatFee = -1
	assert.Error(t, validateFeeSchedule(bad))

	bad = DefaultFeeSchedule()
	bad.CommissionModel = "platform_pays"
	assert.Error(t, validateFeeSchedule(bad))
}

func TestStaticHolder(t *testing.T) {
	schedule := DefaultFeeSchedule()
	schedule.CommissionModel = CommissionModelBuyerPays

	holder := NewStaticFeeScheduleHolder(schedule)
	assert.Equal(t, CommissionModelBuyerPays, holder.Get().CommissionModel)
	assert.Equal(t, int64(150), holder.Get().ProcessingRateBps)
}
