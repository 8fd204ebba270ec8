package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pyth-lazer-mcp/internal/config"
	"pyth-lazer-mcp/internal/domain"
	"pyth-lazer-mcp/internal/normalize"
)

const latestPricePath = "/v1/latest_price"

// RouterClient talks to the latest-price service. Its defining job is
// translation: the router speaks camelCase with numbers that may arrive as
// strings, and every feed carries opaque binary payloads. Responses leave
// this client in the shared snake_case observation shape with the binary
// payloads stripped.
type RouterClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRouterClient(cfg *config.Config, logger *slog.Logger) *RouterClient {
	return &RouterClient{
		baseURL:    cfg.RouterURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     logger,
	}
}

type latestPriceRequest struct {
	Symbols      []string `json:"symbols,omitempty"`
	PriceFeedIDs []int64  `json:"priceFeedIds,omitempty"`
	Properties   []string `json:"properties,omitempty"`
	Channel      string   `json:"channel,omitempty"`
}

type latestPriceResponse struct {
	Parsed *struct {
		TimestampUs flexInt64        `json:"timestampUs"`
		PriceFeeds  []map[string]any `json:"priceFeeds"`
	} `json:"parsed"`
}

// GetLatestPrice fetches the current snapshot for the requested feeds. The
// caller-supplied token is forwarded as a bearer header without local
// validation; the upstream answers bad tokens with 401/403. Empty optional
// filters are omitted from the request body rather than sent empty.
func (c *RouterClient) GetLatestPrice(ctx context.Context, token string, symbols []string, feedIDs []int64, properties []string, channel string) ([]domain.PriceObservation, error) {
	payload := latestPriceRequest{Channel: channel}
	if len(symbols) > 0 {
		payload.Symbols = symbols
	}
	if len(feedIDs) > 0 {
		payload.PriceFeedIDs = feedIDs
	}
	if len(properties) > 0 {
		payload.Properties = properties
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode latest_price request: %w", err)
	}

	return doWithRetry(ctx, c.logger, func() ([]domain.PriceObservation, error) {
		raw, err := c.post(ctx, token, body)
		if err != nil {
			return nil, err
		}
		return normalizeLatestResponse(raw)
	})
}

func (c *RouterClient) post(ctx context.Context, token string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+latestPricePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build router request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	c.logger.Debug("router request", "path", latestPricePath)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("router request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading router response failed: %w", err)
	}

	c.logger.Debug("router response",
		"path", latestPricePath,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			Message:    fmt.Sprintf("router API %s returned %d", latestPricePath, resp.StatusCode),
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}
	return raw, nil
}

func normalizeLatestResponse(raw []byte) ([]domain.PriceObservation, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var parsed latestPriceResponse
	if err := dec.Decode(&parsed); err != nil {
		return nil, &ParseError{Endpoint: latestPricePath, Err: err}
	}
	if parsed.Parsed == nil {
		return nil, &ParseError{Endpoint: latestPricePath, Err: fmt.Errorf("missing parsed block")}
	}

	timestampUs := int64(parsed.Parsed.TimestampUs)
	observations := make([]domain.PriceObservation, 0, len(parsed.Parsed.PriceFeeds))
	for i, feed := range parsed.Parsed.PriceFeeds {
		obs, err := normalizeLatestFeed(normalize.StripBinaryFields(feed), timestampUs)
		if err != nil {
			return nil, &ParseError{Endpoint: latestPricePath, Err: fmt.Errorf("feed %d: %w", i, err)}
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// normalizeLatestFeed maps one raw router feed (camelCase keys, numbers or
// numeric strings) onto the canonical observation shape.
func normalizeLatestFeed(feed map[string]any, timestampUs int64) (domain.PriceObservation, error) {
	var obs domain.PriceObservation

	id, err := int64Field(feed, "priceFeedId")
	if err != nil {
		return obs, err
	}
	if id == nil || *id <= 0 {
		return obs, fmt.Errorf("missing priceFeedId")
	}
	obs.PriceFeedID = *id
	obs.TimestampUs = &timestampUs

	if channel, ok := feed["channel"].(string); ok {
		obs.Channel = domain.FlexString(channel)
	}

	if obs.Price, err = int64Field(feed, "price"); err != nil {
		return obs, err
	}
	if obs.BestBidPrice, err = int64Field(feed, "bestBidPrice"); err != nil {
		return obs, err
	}
	if obs.BestAskPrice, err = int64Field(feed, "bestAskPrice"); err != nil {
		return obs, err
	}
	if obs.Confidence, err = int64Field(feed, "confidence"); err != nil {
		return obs, err
	}
	if obs.Exponent, err = int32Field(feed, "exponent"); err != nil {
		return obs, err
	}
	if obs.PublisherCount, err = int32Field(feed, "publisherCount"); err != nil {
		return obs, err
	}
	return obs, nil
}

// int64Field coerces a value that arrives as a JSON number or a numeric
// string. Absent and null both mean "no value"; anything else that fails to
// parse as an integer is a shape violation, never silently coerced.
func int64Field(feed map[string]any, key string) (*int64, error) {
	v, ok := feed[key]
	if !ok || v == nil {
		return nil, nil
	}

	var literal string
	switch t := v.(type) {
	case json.Number:
		literal = t.String()
	case string:
		literal = strings.TrimSpace(t)
	default:
		return nil, fmt.Errorf("%s: expected number or numeric string, got %T", key, v)
	}

	n, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: not an integer: %q", key, literal)
	}
	return &n, nil
}

func int32Field(feed map[string]any, key string) (*int32, error) {
	wide, err := int64Field(feed, key)
	if err != nil || wide == nil {
		return nil, err
	}
	narrow := int32(*wide)
	if int64(narrow) != *wide {
		return nil, fmt.Errorf("%s: out of range: %d", key, *wide)
	}
	return &narrow, nil
}

// flexInt64 decodes a JSON integer that may be quoted.
type flexInt64 int64

func (n *flexInt64) UnmarshalJSON(b []byte) error {
	literal := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %s", b)
	}
	*n = flexInt64(v)
	return nil
}
