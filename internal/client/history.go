package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pyth-lazer-mcp/internal/config"
	"pyth-lazer-mcp/internal/domain"
)

// HistoryClient talks to the historical-data service: the feed catalog,
// OHLC candles, and point-in-time prices. Every call is a single bounded
// request under the shared retry policy; nothing is cached between calls.
type HistoryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHistoryClient(cfg *config.Config, logger *slog.Logger) *HistoryClient {
	return &HistoryClient{
		baseURL:    cfg.HistoryURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     logger,
	}
}

// GetSymbols fetches the full feed catalog. assetType, when non-empty, is
// passed upstream as a server-side filter; free-text queries are always
// applied client-side by the caller and are never sent upstream.
func (c *HistoryClient) GetSymbols(ctx context.Context, assetType string) ([]domain.Feed, error) {
	endpoint := c.baseURL + "/v1/symbols"
	if assetType != "" {
		endpoint += "?asset_type=" + url.QueryEscape(assetType)
	}

	return doWithRetry(ctx, c.logger, func() ([]domain.Feed, error) {
		body, err := c.get(ctx, endpoint, "/v1/symbols")
		if err != nil {
			return nil, err
		}
		var feeds []domain.Feed
		if err := json.Unmarshal(body, &feeds); err != nil {
			return nil, &ParseError{Endpoint: "/v1/symbols", Err: err}
		}
		for i := range feeds {
			if err := feeds[i].Validate(); err != nil {
				return nil, &ParseError{Endpoint: "/v1/symbols", Err: err}
			}
		}
		return feeds, nil
	})
}

// GetCandlestickData fetches the OHLC series for one symbol at one
// resolution. The from < to precondition belongs to the caller; the series
// status distinguishes an empty range (no_data) from an upstream error.
func (c *HistoryClient) GetCandlestickData(ctx context.Context, channel, symbol, resolution string, from, to int64) (domain.OHLCSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", resolution)
	params.Set("from", strconv.FormatInt(from, 10))
	params.Set("to", strconv.FormatInt(to, 10))
	path := "/v1/" + channel + "/history"
	endpoint := c.baseURL + path + "?" + params.Encode()

	return doWithRetry(ctx, c.logger, func() (domain.OHLCSeries, error) {
		var series domain.OHLCSeries
		body, err := c.get(ctx, endpoint, path)
		if err != nil {
			return series, err
		}
		if err := json.Unmarshal(body, &series); err != nil {
			return domain.OHLCSeries{}, &ParseError{Endpoint: path, Err: err}
		}
		if err := series.Validate(); err != nil {
			return domain.OHLCSeries{}, &ParseError{Endpoint: path, Err: err}
		}
		return series, nil
	})
}

// GetHistoricalPrice fetches observations for the given feed IDs at an
// aligned microsecond timestamp. Upstream may return zero, one, or several
// rows per ID (bracketing entries); multiplicity is preserved as-is.
func (c *HistoryClient) GetHistoricalPrice(ctx context.Context, channel string, feedIDs []int64, timestampMicros int64) ([]domain.PriceObservation, error) {
	params := url.Values{}
	for _, id := range feedIDs {
		params.Add("ids", strconv.FormatInt(id, 10))
	}
	params.Set("timestamp", strconv.FormatInt(timestampMicros, 10))
	path := "/v1/" + channel + "/price"
	endpoint := c.baseURL + path + "?" + params.Encode()

	return doWithRetry(ctx, c.logger, func() ([]domain.PriceObservation, error) {
		body, err := c.get(ctx, endpoint, path)
		if err != nil {
			return nil, err
		}
		var observations []domain.PriceObservation
		if err := json.Unmarshal(body, &observations); err != nil {
			return nil, &ParseError{Endpoint: path, Err: err}
		}
		for i := range observations {
			if err := observations[i].ValidateHistorical(); err != nil {
				return nil, &ParseError{Endpoint: path, Err: err}
			}
		}
		return observations, nil
	})
}

func (c *HistoryClient) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}

	start := time.Now()
	c.logger.Debug("history request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading history response from %s failed: %w", path, err)
	}

	c.logger.Debug("history response",
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			Message:    fmt.Sprintf("history API %s returned %d", path, resp.StatusCode),
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}
	return body, nil
}
