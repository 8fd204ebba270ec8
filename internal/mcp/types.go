package mcp

import (
	"fmt"
	"strings"

	"pyth-lazer-mcp/internal/domain"
)

const (
	defaultFeedPageSize = 50
	maxFeedPageSize     = 200
	maxCandlePoints     = 500
	maxBatchSelectors   = 50
)

const (
	msgMissingToken = "This tool requires a Pyth Pro access token. Provide an `access_token` parameter. Get a token at https://pyth.network/pricing"
	msgInvalidToken = "Your Pyth Pro access token is invalid or expired. Check your `access_token` value."

	hintNoCandles = "No candlestick data for this symbol/time range. Data is available from April 2025 onward. Try a more recent time range or a different resolution."
	hintNoPrices  = "No price data found for these feeds at the requested timestamp. Data is available from April 2025 onward. Try a more recent timestamp — some feeds may have started publishing after April 2025."
	hintTruncated = "Narrow your time range or use a larger resolution to get all candles."
)

func msgFeedNotFound(input string) string {
	return fmt.Sprintf("Feed not found: %s. Use get_symbols to discover available feeds.", input)
}

type getSymbolsInput struct {
	Query     string `json:"query,omitempty" jsonschema:"free-text filter matched case-insensitively against name, symbol, and description"`
	AssetType string `json:"asset_type,omitempty" jsonschema:"filter by asset type: crypto, fx, equity, metal, rates, commodity, funding-rate"`
	Offset    int    `json:"offset,omitempty" jsonschema:"pagination offset into the filtered catalog"`
	Limit     int    `json:"limit,omitempty" jsonschema:"page size, default 50, max 200"`
}

type getSymbolsOutput struct {
	Feeds          []domain.Feed `json:"feeds"`
	Count          int           `json:"count"`
	TotalAvailable int           `json:"total_available"`
	HasMore        bool          `json:"has_more"`
	Offset         int           `json:"offset"`
	NextOffset     *int          `json:"next_offset"`
}

type getCandlestickDataInput struct {
	Symbol     string `json:"symbol" jsonschema:"full symbol from get_symbols including asset type prefix (e.g. 'Crypto.BTC/USD', not 'BTC/USD')"`
	Resolution string `json:"resolution" jsonschema:"candle size: 1, 5, 15, 30, 60 (minutes), 120, 240, 360, 720 (multi-hour), D (daily), W (weekly), M (monthly)"`
	From       int64  `json:"from" jsonschema:"start time (Unix seconds)"`
	To         int64  `json:"to" jsonschema:"end time (Unix seconds)"`
	Channel    string `json:"channel,omitempty" jsonschema:"price channel, e.g. fixed_rate@200ms or real_time; defaults to the configured channel"`
}

type getCandlestickDataOutput struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t,omitempty"`
	Open       []float64 `json:"o,omitempty"`
	High       []float64 `json:"h,omitempty"`
	Low        []float64 `json:"l,omitempty"`
	Close      []float64 `json:"c,omitempty"`
	Volume     []float64 `json:"v,omitempty"`

	Candles        *int   `json:"candles,omitempty"`
	Truncated      bool   `json:"truncated,omitempty"`
	Returned       int    `json:"returned,omitempty"`
	TotalAvailable int    `json:"total_available,omitempty"`
	Hint           string `json:"hint,omitempty"`
}

type getHistoricalPriceInput struct {
	PriceFeedIDs []int64  `json:"price_feed_ids,omitempty" jsonschema:"numeric feed IDs from get_symbols, max 50"`
	Symbols      []string `json:"symbols,omitempty" jsonschema:"symbol names (e.g. ['BTC/USD', 'ETH/USD']), max 50"`
	Timestamp    int64    `json:"timestamp" jsonschema:"Unix timestamp — accepts seconds, milliseconds, or microseconds (auto-detected by magnitude)"`
	Channel      string   `json:"channel,omitempty" jsonschema:"price channel, e.g. fixed_rate@200ms or real_time; defaults to the configured channel"`
}

type getHistoricalPriceOutput struct {
	Prices []domain.PriceObservation `json:"prices"`
	Hint   string                    `json:"hint,omitempty"`
}

type getLatestPriceInput struct {
	AccessToken  string   `json:"access_token,omitempty" jsonschema:"Pyth Pro access token; required"`
	Symbols      []string `json:"symbols,omitempty" jsonschema:"symbol names to fetch"`
	PriceFeedIDs []int64  `json:"price_feed_ids,omitempty" jsonschema:"numeric feed IDs to fetch"`
	Properties   []string `json:"properties,omitempty" jsonschema:"optional property filter forwarded upstream"`
	Channel      string   `json:"channel,omitempty" jsonschema:"price channel, e.g. fixed_rate@200ms or real_time; defaults to the configured channel"`
}

type getLatestPriceOutput struct {
	Prices []domain.PriceObservation `json:"prices"`
}

// filterFeedsByQuery applies the client-side free-text filter: a
// case-insensitive substring match over name, symbol, and description.
// Whitespace-only queries match everything.
func filterFeedsByQuery(feeds []domain.Feed, query string) []domain.Feed {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return feeds
	}
	matched := make([]domain.Feed, 0, len(feeds))
	for _, f := range feeds {
		if strings.Contains(strings.ToLower(f.Name), needle) ||
			strings.Contains(strings.ToLower(f.Symbol), needle) ||
			strings.Contains(strings.ToLower(f.Description), needle) {
			matched = append(matched, f)
		}
	}
	return matched
}

// paginateFeeds slices the filtered catalog without re-sorting it; upstream
// order is the contract.
func paginateFeeds(feeds []domain.Feed, offset, limit int) getSymbolsOutput {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultFeedPageSize
	}
	if limit > maxFeedPageSize {
		limit = maxFeedPageSize
	}

	total := len(feeds)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := getSymbolsOutput{
		Feeds:          append([]domain.Feed(nil), feeds[offset:end]...),
		Count:          end - offset,
		TotalAvailable: total,
		HasMore:        end < total,
		Offset:         offset,
	}
	if out.HasMore {
		next := end
		out.NextOffset = &next
	}
	return out
}

func validateAssetType(assetType string) (string, error) {
	assetType = strings.TrimSpace(assetType)
	if assetType == "" {
		return "", nil
	}
	if !domain.IsAssetType(assetType) {
		return "", fmt.Errorf("unsupported asset_type: %s (expected one of %s)", assetType, strings.Join(domain.AssetTypes, ", "))
	}
	return assetType, nil
}

func validateCandlestickInput(in getCandlestickDataInput) error {
	if strings.TrimSpace(in.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if !domain.IsResolution(in.Resolution) {
		return fmt.Errorf("unsupported resolution: %s (expected one of %s)", in.Resolution, strings.Join(domain.Resolutions, ", "))
	}
	if in.From <= 0 || in.To <= 0 {
		return fmt.Errorf("'from' and 'to' must be positive Unix seconds")
	}
	if in.From >= in.To {
		return fmt.Errorf("'from' must be before 'to'")
	}
	return nil
}

func validateHistoricalPriceInput(in getHistoricalPriceInput) error {
	if len(in.PriceFeedIDs) == 0 && len(in.Symbols) == 0 {
		return fmt.Errorf("at least one of 'price_feed_ids' or 'symbols' is required")
	}
	if len(in.PriceFeedIDs) > maxBatchSelectors || len(in.Symbols) > maxBatchSelectors {
		return fmt.Errorf("at most %d feed IDs or symbols per call", maxBatchSelectors)
	}
	for _, id := range in.PriceFeedIDs {
		if id <= 0 {
			return fmt.Errorf("price_feed_ids must be positive, got %d", id)
		}
	}
	if in.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive")
	}
	return nil
}

// dedupeIDs drops repeated feed IDs while keeping first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// resolveSymbols maps symbol names to feed IDs with an exact, first-match
// lookup against the catalog. Symbols are display labels, so the first
// catalog entry wins when a symbol repeats across asset types.
func resolveSymbols(feeds []domain.Feed, symbols []string) ([]int64, error) {
	ids := make([]int64, 0, len(symbols))
	for _, symbol := range symbols {
		var found *domain.Feed
		for i := range feeds {
			if feeds[i].Symbol == symbol {
				found = &feeds[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%s", msgFeedNotFound(symbol))
		}
		ids = append(ids, found.PythLazerID)
	}
	return ids, nil
}
