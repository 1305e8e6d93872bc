package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CommissionModelBuyerPays and CommissionModelSellerPays select which
// party bears the platform commission.
const (
	CommissionModelBuyerPays  = "buyer_pays_commission"
	CommissionModelSellerPays = "seller_pays_commission"
)

// FeeSchedule carries the live settlement rates. Percentage rates are
// basis points, flat fees are minor currency units (cents).
type FeeSchedule struct {
	ProcessingRateBps int64  `mapstructure:"processingRateBps"`
	EscrowFlatFee     int64  `mapstructure:"escrowFlatFee"`
	CommissionRateBps int64  `mapstructure:"commissionRateBps"`
	PayoutFeeRateBps  int64  `mapstructure:"payoutFeeRateBps"`
	CommissionModel   string `mapstructure:"commissionModel"`

	Surcharge SurchargeSchedule `mapstructure:"surcharge"`
}

// SurchargeSchedule configures the seller-delivers surcharge rule.
type SurchargeSchedule struct {
	MinFlatFee   int64 `mapstructure:"minFlatFee"`
	PerKmPerUnit int64 `mapstructure:"perKmPerUnit"`
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		ProcessingRateBps: 150,  // 1.5%
		EscrowFlatFee:     2500, // R25.00
		CommissionRateBps: 1000, // 10%
		PayoutFeeRateBps:  200,  // 2%
		CommissionModel:   CommissionModelSellerPays,
		Surcharge: SurchargeSchedule{
			MinFlatFee:   15000, // R150.00
			PerKmPerUnit: 120,   // R1.20 per km per head
		},
	}
}

// FeeScheduleHolder exposes the current fee schedule with hot reload from
// fees.yml. Reads are lock free via atomic.Value.
type FeeScheduleHolder struct {
	current atomic.Value // holds FeeSchedule
}

func NewFeeScheduleHolder() (*FeeScheduleHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kraal/config")
	v.AddConfigPath("/etc/kraal")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KRAAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFeeSchedule()
		v.SetDefault("fees.processingRateBps", defaults.ProcessingRateBps)
		v.SetDefault("fees.escrowFlatFee", defaults.EscrowFlatFee)
		v.SetDefault("fees.commissionRateBps", defaults.CommissionRateBps)
		v.SetDefault("fees.payoutFeeRateBps", defaults.PayoutFeeRateBps)
		v.SetDefault("fees.commissionModel", defaults.CommissionModel)
		v.SetDefault("fees.surcharge.minFlatFee", defaults.Surcharge.MinFlatFee)
		v.SetDefault("fees.surcharge.perKmPerUnit", defaults.Surcharge.PerKmPerUnit)
	}

	var schedule FeeSchedule
	if err := v.UnmarshalKey("fees", &schedule); err != nil {
		return nil, err
	}
	if err := validateFeeSchedule(schedule); err != nil {
		return nil, err
	}

	holder := &FeeScheduleHolder{}
	holder.current.Store(schedule)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeeSchedule
		if err := v.UnmarshalKey("fees", &updated); err != nil {
			log.Printf("[fee-schedule] reload failed: %v", err)
			return
		}
		if err := holder.Store(updated); err != nil {
			log.Printf("[fee-schedule] invalid schedule ignored: %v", err)
			return
		}
		log.Printf("[fee-schedule] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FeeScheduleHolder) Get() FeeSchedule {
	return h.current.Load().(FeeSchedule)
}

// Store replaces the live schedule after validation. Hot reload and
// operator-driven rate changes pass through here.
func (h *FeeScheduleHolder) Store(schedule FeeSchedule) error {
	if err := validateFeeSchedule(schedule); err != nil {
		return err
	}
	h.current.Store(schedule)
	return nil
}

// NewStaticFeeScheduleHolder wraps a fixed schedule, bypassing file watch.
// Used by tests and by callers that pin rates.
func NewStaticFeeScheduleHolder(schedule FeeSchedule) *FeeScheduleHolder {
	holder := &FeeScheduleHolder{}
	holder.current.Store(schedule)
	return holder
}

func validateFeeSchedule(s FeeSchedule) error {
	if s.ProcessingRateBps < 0 || s.ProcessingRateBps > 10000 {
		return errors.New("fees.processingRateBps out of range")
	}
	if s.CommissionRateBps < 0 || s.CommissionRateBps > 10000 {
		return errors.New("fees.commissionRateBps out of range")
	}
	if s.PayoutFeeRateBps < 0 || s.PayoutFeeRateBps > 10000 {
		return errors.New("fees.payoutFeeRateBps out of range")
	}
	if s.EscrowFlatFee < 0 {
		return errors.New("fees.escrowFlatFee cannot be negative")
	}
	if s.Surcharge.MinFlatFee < 0 || s.Surcharge.PerKmPerUnit < 0 {
		return errors.New("fees.surcharge rates cannot be negative")
	}
	switch s.CommissionModel {
	case CommissionModelBuyerPays, CommissionModelSellerPays:
	default:
		return errors.New("fees.commissionModel must be buyer_pays_commission or seller_pays_commission")
	}
	return nil
}
