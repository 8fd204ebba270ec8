package mcp

import (
	"context"

	"pyth-lazer-mcp/internal/domain"
)

// HistoryReader exposes the historical-data operations the tools consume.
type HistoryReader interface {
	GetSymbols(ctx context.Context, assetType string) ([]domain.Feed, error)
	GetCandlestickData(ctx context.Context, channel, symbol, resolution string, from, to int64) (domain.OHLCSeries, error)
	GetHistoricalPrice(ctx context.Context, channel string, feedIDs []int64, timestampMicros int64) ([]domain.PriceObservation, error)
}

// LatestPriceReader exposes the token-gated latest-price operation.
type LatestPriceReader interface {
	GetLatestPrice(ctx context.Context, token string, symbols []string, feedIDs []int64, properties []string, channel string) ([]domain.PriceObservation, error)
}
