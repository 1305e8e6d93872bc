package domain

import "github.com/kraalhq/kraal/internal/money"

// DeliverySurcharge applies the seller-delivers transport rule: with a
// known distance the surcharge is distance x per-km-per-unit rate x
// quantity, floored at the minimum flat fee. BUYER_COLLECTS carries no
// surcharge and REQUEST_FOR_QUOTE transport is borne through the
// abattoir fee instead.
func DeliverySurcharge(
	mode DeliveryMode,
	distanceKm *int64,
	quantity int64,
	minFlatFee money.Amount,
	perKmPerUnit money.Amount,
) money.Amount {
	if mode != DeliverySellerDelivers || distanceKm == nil {
		return 0
	}
	variable := money.Amount(*distanceKm) * perKmPerUnit * money.Amount(quantity)
	return money.Max(minFlatFee, variable)
}
