package normalize

import (
	"math"
	"testing"

	"pyth-lazer-mcp/internal/domain"
)

func int64p(v int64) *int64 { return &v }
func int32p(v int32) *int32 { return &v }

func TestAddDisplayPricesComputesAllFields(t *testing.T) {
	obs := domain.PriceObservation{
		PriceFeedID:  1,
		Price:        int64p(9742350000000),
		BestBidPrice: int64p(9742340000000),
		BestAskPrice: int64p(9742360000000),
		Exponent:     int32p(-8),
	}

	got := AddDisplayPrices(obs)
	if got.DisplayPrice == nil || math.Abs(*got.DisplayPrice-97423.5) > 0.01 {
		t.Fatalf("display_price = %v, want ~97423.5", got.DisplayPrice)
	}
	if got.DisplayBid == nil || math.Abs(*got.DisplayBid-97423.4) > 0.01 {
		t.Fatalf("display_bid = %v, want ~97423.4", got.DisplayBid)
	}
	if got.DisplayAsk == nil || math.Abs(*got.DisplayAsk-97423.6) > 0.01 {
		t.Fatalf("display_ask = %v, want ~97423.6", got.DisplayAsk)
	}
}

func TestAddDisplayPricesOmitsAbsentValues(t *testing.T) {
	obs := domain.PriceObservation{PriceFeedID: 1, Exponent: int32p(-8)}
	got := AddDisplayPrices(obs)
	if got.DisplayPrice != nil || got.DisplayBid != nil || got.DisplayAsk != nil {
		t.Fatalf("display fields must be absent when raw values are absent: %+v", got)
	}
}

func TestAddDisplayPricesPartialFields(t *testing.T) {
	obs := domain.PriceObservation{
		PriceFeedID: 1,
		Price:       int64p(5140000000000),
		Exponent:    int32p(-8),
	}
	got := AddDisplayPrices(obs)
	if got.DisplayPrice == nil {
		t.Fatal("display_price must be present when price is present")
	}
	if got.DisplayBid != nil || got.DisplayAsk != nil {
		t.Fatal("display_bid/display_ask must be absent when bid/ask are absent")
	}
}

func TestAddDisplayPricesExponentDefaultsToZero(t *testing.T) {
	obs := domain.PriceObservation{PriceFeedID: 1, Price: int64p(42)}
	got := AddDisplayPrices(obs)
	if got.DisplayPrice == nil || *got.DisplayPrice != 42 {
		t.Fatalf("missing exponent should behave as 0, got %v", got.DisplayPrice)
	}

	obs.Exponent = int32p(0)
	got = AddDisplayPrices(obs)
	if got.DisplayPrice == nil || *got.DisplayPrice != 42 {
		t.Fatalf("exponent 0 should leave the value unscaled, got %v", got.DisplayPrice)
	}
}

func TestAddDisplayPricesDoesNotMutateInput(t *testing.T) {
	obs := domain.PriceObservation{PriceFeedID: 1, Price: int64p(100), Exponent: int32p(-2)}
	_ = AddDisplayPrices(obs)
	if obs.DisplayPrice != nil {
		t.Fatal("input observation must not be mutated")
	}
}

func TestAddDisplayPricesScenario(t *testing.T) {
	// Raw 5150000000000 at exponent -8 displays as 51500.00.
	obs := domain.PriceObservation{PriceFeedID: 1, Price: int64p(5150000000000), Exponent: int32p(-8)}
	got := AddDisplayPrices(obs)
	if got.DisplayPrice == nil || math.Abs(*got.DisplayPrice-51500.0) > 0.01 {
		t.Fatalf("display_price = %v, want ~51500.00", got.DisplayPrice)
	}
}
