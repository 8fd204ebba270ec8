package mcp

import (
	"strings"
	"testing"

	"pyth-lazer-mcp/internal/domain"
)

func TestFilterFeedsByQuery(t *testing.T) {
	feeds := catalogFeeds(5)

	if got := filterFeedsByQuery(feeds, ""); len(got) != len(feeds) {
		t.Fatalf("empty query must match everything, got %d", len(got))
	}
	if got := filterFeedsByQuery(feeds, "   "); len(got) != len(feeds) {
		t.Fatalf("whitespace query must match everything, got %d", len(got))
	}

	got := filterFeedsByQuery(feeds, "APPLE")
	if len(got) != 1 || got[0].Symbol != "Equity.US.AAPL/USD" {
		t.Fatalf("query must be case-insensitive over name, got %+v", got)
	}

	got = filterFeedsByQuery(feeds, "eth/usd")
	if len(got) != 1 || got[0].PythLazerID != 2 {
		t.Fatalf("query must match symbols, got %+v", got)
	}

	if got := filterFeedsByQuery(feeds, "dogecoin"); len(got) != 0 {
		t.Fatalf("non-matching query must return nothing, got %+v", got)
	}
}

func TestPaginateFeeds(t *testing.T) {
	feeds := catalogFeeds(120)

	out := paginateFeeds(feeds, 0, 0)
	if out.Count != defaultFeedPageSize || out.TotalAvailable != 120 || !out.HasMore {
		t.Fatalf("zero limit must fall back to the default page size: %+v", out)
	}
	if out.NextOffset == nil || *out.NextOffset != defaultFeedPageSize {
		t.Fatalf("next_offset = %v", out.NextOffset)
	}

	out = paginateFeeds(feeds, 0, 1000)
	if out.Count != 120 {
		t.Fatalf("limit must clamp to %d; with 120 feeds all fit, got %d", maxFeedPageSize, out.Count)
	}

	out = paginateFeeds(catalogFeeds(300), 0, 1000)
	if out.Count != maxFeedPageSize {
		t.Fatalf("limit must clamp to %d, got %d", maxFeedPageSize, out.Count)
	}

	out = paginateFeeds(feeds, 500, 10)
	if out.Count != 0 || out.HasMore || out.NextOffset != nil {
		t.Fatalf("offset past the end must yield an empty page: %+v", out)
	}

	out = paginateFeeds(feeds, -5, 10)
	if out.Offset != 0 || out.Count != 10 {
		t.Fatalf("negative offset must clamp to 0: %+v", out)
	}
}

func TestValidateAssetType(t *testing.T) {
	if got, err := validateAssetType(""); err != nil || got != "" {
		t.Fatalf("empty asset type means no filter, got %q (err=%v)", got, err)
	}
	if got, err := validateAssetType(" crypto "); err != nil || got != "crypto" {
		t.Fatalf("asset type must be trimmed, got %q (err=%v)", got, err)
	}
	if _, err := validateAssetType("bonds"); err == nil {
		t.Fatal("unknown asset type must be rejected")
	}
}

func TestValidateCandlestickInput(t *testing.T) {
	valid := getCandlestickDataInput{Symbol: "Crypto.BTC/USD", Resolution: "D", From: 1, To: 2}
	if err := validateCandlestickInput(valid); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []getCandlestickDataInput{
		{Symbol: "", Resolution: "D", From: 1, To: 2},
		{Symbol: "Crypto.BTC/USD", Resolution: "45", From: 1, To: 2},
		{Symbol: "Crypto.BTC/USD", Resolution: "D", From: 0, To: 2},
		{Symbol: "Crypto.BTC/USD", Resolution: "D", From: 2, To: 2},
		{Symbol: "Crypto.BTC/USD", Resolution: "D", From: 3, To: 2},
	}
	for _, in := range cases {
		if err := validateCandlestickInput(in); err == nil {
			t.Fatalf("expected rejection for %+v", in)
		}
	}
}

func TestValidateHistoricalPriceInput(t *testing.T) {
	valid := getHistoricalPriceInput{PriceFeedIDs: []int64{1}, Timestamp: 1708300800}
	if err := validateHistoricalPriceInput(valid); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	if err := validateHistoricalPriceInput(getHistoricalPriceInput{Timestamp: 1}); err == nil {
		t.Fatal("a call without selectors must be rejected")
	}
	if err := validateHistoricalPriceInput(getHistoricalPriceInput{PriceFeedIDs: []int64{0}, Timestamp: 1}); err == nil {
		t.Fatal("non-positive feed IDs must be rejected")
	}
	if err := validateHistoricalPriceInput(getHistoricalPriceInput{PriceFeedIDs: []int64{1}, Timestamp: 0}); err == nil {
		t.Fatal("non-positive timestamp must be rejected")
	}

	tooMany := make([]string, maxBatchSelectors+1)
	for i := range tooMany {
		tooMany[i] = "Crypto.BTC/USD"
	}
	if err := validateHistoricalPriceInput(getHistoricalPriceInput{Symbols: tooMany, Timestamp: 1}); err == nil {
		t.Fatalf("more than %d symbols must be rejected", maxBatchSelectors)
	}
}

func TestDedupeIDs(t *testing.T) {
	got := dedupeIDs([]int64{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("dedupe must keep first-seen order, got %v", got)
	}
	if got := dedupeIDs(nil); len(got) != 0 {
		t.Fatalf("nil input must yield empty, got %v", got)
	}
}

func TestResolveSymbolsFirstMatchWins(t *testing.T) {
	feeds := []domain.Feed{
		{PythLazerID: 10, Symbol: "BTC/USD", AssetType: "crypto"},
		{PythLazerID: 20, Symbol: "BTC/USD", AssetType: "fx"},
		{PythLazerID: 30, Symbol: "ETH/USD", AssetType: "crypto"},
	}

	ids, err := resolveSymbols(feeds, []string{"BTC/USD", "ETH/USD"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 30 {
		t.Fatalf("first catalog entry must win for repeated symbols, got %v", ids)
	}

	_, err = resolveSymbols(feeds, []string{"SOL/USD"})
	if err == nil || !strings.Contains(err.Error(), "SOL/USD") {
		t.Fatalf("missing symbol must be named in the error, got %v", err)
	}
}
