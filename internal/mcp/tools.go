package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"pyth-lazer-mcp/internal/client"
	"pyth-lazer-mcp/internal/domain"
	"pyth-lazer-mcp/internal/normalize"
)

func registerTools(server *sdkmcp.Server, cfg ServerConfig, history HistoryReader, router LatestPriceReader, logger *slog.Logger) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name: "get_symbols",
		Description: "Search the price-feed catalog. Returns feeds across crypto, fx, equity, metal, rates, commodity, " +
			"and funding-rate asset classes, paginated 50 per page by default. Use the numeric pyth_lazer_id or the full " +
			"symbol from the results with the other tools.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in getSymbolsInput) (*sdkmcp.CallToolResult, getSymbolsOutput, error) {
		start := time.Now()

		assetType, err := validateAssetType(in.AssetType)
		if err != nil {
			logToolCall(logger, "get_symbols", "error", start, false, "validation")
			return nil, getSymbolsOutput{}, err
		}

		feeds, err := history.GetSymbols(ctx, assetType)
		if err != nil {
			logToolCall(logger, "get_symbols", "error", start, false, errorType(err))
			return nil, getSymbolsOutput{}, upstreamToolError(err, "Failed to fetch the feed catalog. Please try again.")
		}

		out := paginateFeeds(filterFeedsByQuery(feeds, in.Query), in.Offset, in.Limit)
		logToolCall(logger, "get_symbols", "success", start, false, "")
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name: "get_candlestick_data",
		Description: "Fetch OHLC candlestick data for a symbol. Use for charting, technical analysis, backtesting. " +
			"IMPORTANT: the symbol must be the full name from get_symbols including the asset type prefix " +
			"(e.g. 'Crypto.BTC/USD', 'Equity.US.AAPL', 'FX.EUR/USD') — never a bare name like 'BTC/USD'. " +
			"Historical data is available from April 2025 onward. Resolutions: 1/5/15/30/60 minutes, " +
			"120/240/360/720 (multi-hour), D (daily), W (weekly), M (monthly). Timestamps are Unix seconds. " +
			"At most 500 candles are returned per call.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in getCandlestickDataInput) (*sdkmcp.CallToolResult, getCandlestickDataOutput, error) {
		start := time.Now()

		if err := validateCandlestickInput(in); err != nil {
			logToolCall(logger, "get_candlestick_data", "error", start, false, "validation")
			return nil, getCandlestickDataOutput{}, err
		}
		channel := normalize.ResolveChannel(in.Channel, cfg.DefaultChannel)

		series, err := history.GetCandlestickData(ctx, channel, in.Symbol, in.Resolution, in.From, in.To)
		if err != nil {
			logToolCall(logger, "get_candlestick_data", "error", start, false, errorType(err))
			return nil, getCandlestickDataOutput{}, upstreamToolError(err, "Failed to fetch candlestick data. Please try again.")
		}

		if series.Status == domain.OHLCStatusError {
			logToolCall(logger, "get_candlestick_data", "error", start, false, "upstream")
			msg := series.ErrMsg
			if msg == "" {
				msg = "Unknown error from the history service"
			}
			return nil, getCandlestickDataOutput{}, errors.New(msg)
		}

		// An empty range is a successful answer, not a failure; surface it
		// with a hint instead of a tool error.
		if series.Status == domain.OHLCStatusNoData || len(series.Timestamps) == 0 {
			logToolCall(logger, "get_candlestick_data", "success", start, false, "")
			zero := 0
			return nil, getCandlestickDataOutput{Status: series.Status, Candles: &zero, Hint: hintNoCandles}, nil
		}

		out := getCandlestickDataOutput{
			Status:     series.Status,
			Timestamps: series.Timestamps,
			Open:       series.Open,
			High:       series.High,
			Low:        series.Low,
			Close:      series.Close,
			Volume:     series.Volume,
		}
		if total := len(series.Timestamps); total > maxCandlePoints {
			out.Timestamps = series.Timestamps[:maxCandlePoints]
			out.Open = series.Open[:maxCandlePoints]
			out.High = series.High[:maxCandlePoints]
			out.Low = series.Low[:maxCandlePoints]
			out.Close = series.Close[:maxCandlePoints]
			out.Volume = series.Volume[:maxCandlePoints]
			out.Truncated = true
			out.Returned = maxCandlePoints
			out.TotalAvailable = total
			out.Hint = hintTruncated
		}

		logToolCall(logger, "get_candlestick_data", "success", start, false, "")
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name: "get_historical_price",
		Description: "Get price data for specific feeds at a historical timestamp. Use get_symbols first to find feed IDs " +
			"or symbols. Accepts Unix seconds, milliseconds, or microseconds (auto-detected by magnitude). The timestamp " +
			"is converted to microseconds and aligned (rounded down) to the channel rate — e.g. for fixed_rate@200ms it " +
			"must be divisible by 200,000μs. Prices are integers with an exponent field — human-readable price = " +
			"price * 10^exponent. Pre-computed display_price fields are included for convenience.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in getHistoricalPriceInput) (*sdkmcp.CallToolResult, getHistoricalPriceOutput, error) {
		start := time.Now()

		if err := validateHistoricalPriceInput(in); err != nil {
			logToolCall(logger, "get_historical_price", "error", start, false, "validation")
			return nil, getHistoricalPriceOutput{}, err
		}
		channel := normalize.ResolveChannel(in.Channel, cfg.DefaultChannel)

		ids := append([]int64(nil), in.PriceFeedIDs...)
		if len(in.Symbols) > 0 {
			// One catalog fetch resolves every symbol; never one call per symbol.
			feeds, err := history.GetSymbols(ctx, "")
			if err != nil {
				logToolCall(logger, "get_historical_price", "error", start, false, errorType(err))
				return nil, getHistoricalPriceOutput{}, upstreamToolError(err, "Failed to fetch historical price. Please try again.")
			}
			resolved, err := resolveSymbols(feeds, in.Symbols)
			if err != nil {
				logToolCall(logger, "get_historical_price", "error", start, false, "not_found")
				return nil, getHistoricalPriceOutput{}, err
			}
			ids = append(ids, resolved...)
		}
		ids = dedupeIDs(ids)

		timestampUs := normalize.AlignToChannel(normalize.TimestampToMicros(in.Timestamp), channel)

		observations, err := history.GetHistoricalPrice(ctx, channel, ids, timestampUs)
		if err != nil {
			logToolCall(logger, "get_historical_price", "error", start, false, errorType(err))
			return nil, getHistoricalPriceOutput{}, upstreamToolError(err, "Failed to fetch historical price. Please try again.")
		}

		out := getHistoricalPriceOutput{Prices: make([]domain.PriceObservation, 0, len(observations))}
		for _, obs := range observations {
			out.Prices = append(out.Prices, normalize.AddDisplayPrices(obs))
		}
		if len(out.Prices) == 0 {
			out.Hint = hintNoPrices
		}

		logToolCall(logger, "get_historical_price", "success", start, false, "")
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name: "get_latest_price",
		Description: "Get the current price snapshot for feeds by symbol or feed ID. Requires a Pyth Pro access token " +
			"passed as `access_token`. Prices are integers with an exponent field; pre-computed display_price fields " +
			"are included for convenience.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in getLatestPriceInput) (*sdkmcp.CallToolResult, getLatestPriceOutput, error) {
		start := time.Now()

		token := strings.TrimSpace(in.AccessToken)
		if token == "" {
			logToolCall(logger, "get_latest_price", "error", start, false, "auth")
			return nil, getLatestPriceOutput{}, errors.New(msgMissingToken)
		}
		if len(in.Symbols) == 0 && len(in.PriceFeedIDs) == 0 {
			logToolCall(logger, "get_latest_price", "error", start, true, "validation")
			return nil, getLatestPriceOutput{}, fmt.Errorf("at least one of 'price_feed_ids' or 'symbols' is required")
		}
		channel := normalize.ResolveChannel(in.Channel, cfg.DefaultChannel)

		observations, err := router.GetLatestPrice(ctx, token, in.Symbols, in.PriceFeedIDs, in.Properties, channel)
		if err != nil {
			logToolCall(logger, "get_latest_price", "error", start, true, errorType(err))
			var httpErr *client.HTTPError
			if errors.As(err, &httpErr) && (httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden) {
				return nil, getLatestPriceOutput{}, errors.New(msgInvalidToken)
			}
			return nil, getLatestPriceOutput{}, upstreamToolError(err, "Failed to fetch latest price. Please try again.")
		}

		out := getLatestPriceOutput{Prices: make([]domain.PriceObservation, 0, len(observations))}
		for _, obs := range observations {
			out.Prices = append(out.Prices, normalize.AddDisplayPrices(obs))
		}

		logToolCall(logger, "get_latest_price", "success", start, true, "")
		return nil, out, nil
	})
}

// upstreamToolError converts a client-layer failure into a short actionable
// message; internal error text never reaches the caller.
func upstreamToolError(err error, friendly string) error {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%s (upstream status %d)", friendly, httpErr.Status)
	}
	return errors.New(friendly)
}

func errorType(err error) string {
	var parseErr *client.ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return "http"
	}
	return "transport"
}

func logToolCall(logger *slog.Logger, tool, status string, start time.Time, hasToken bool, errType string) {
	attrs := []any{
		"tool", tool,
		"status", status,
		"latency_ms", time.Since(start).Milliseconds(),
		"has_token", hasToken,
	}
	if errType != "" {
		attrs = append(attrs, "error_type", errType)
	}
	logger.Info("tool call", attrs...)
}
