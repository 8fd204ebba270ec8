package normalize

import (
	"github.com/shopspring/decimal"

	"pyth-lazer-mcp/internal/domain"
)

// AddDisplayPrices returns a copy of the observation with display_price,
// display_bid, and display_ask derived as raw * 10^exponent. A display field
// is set only when its raw counterpart is present; a missing exponent
// behaves as 0. The input is not mutated.
func AddDisplayPrices(obs domain.PriceObservation) domain.PriceObservation {
	var exp int32
	if obs.Exponent != nil {
		exp = *obs.Exponent
	}
	obs.DisplayPrice = displayValue(obs.Price, exp)
	obs.DisplayBid = displayValue(obs.BestBidPrice, exp)
	obs.DisplayAsk = displayValue(obs.BestAskPrice, exp)
	return obs
}

func displayValue(raw *int64, exp int32) *float64 {
	if raw == nil {
		return nil
	}
	v, _ := decimal.New(*raw, exp).Float64()
	return &v
}
