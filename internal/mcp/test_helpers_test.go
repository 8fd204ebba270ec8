package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"pyth-lazer-mcp/internal/domain"
)

type stubHistoryReader struct {
	feeds      []domain.Feed
	symbolsErr error

	series     domain.OHLCSeries
	candlesErr error

	observations []domain.PriceObservation
	priceErr     error

	symbolsCalls  int
	candlesCalls  int
	priceCalls    int
	lastAssetType string

	lastCandleChannel    string
	lastCandleSymbol     string
	lastCandleResolution string
	lastCandleFrom       int64
	lastCandleTo         int64

	lastPriceChannel   string
	lastPriceIDs       []int64
	lastPriceTimestamp int64
}

func (s *stubHistoryReader) GetSymbols(ctx context.Context, assetType string) ([]domain.Feed, error) {
	s.symbolsCalls++
	s.lastAssetType = assetType
	if s.symbolsErr != nil {
		return nil, s.symbolsErr
	}
	feeds := s.feeds
	if assetType != "" {
		feeds = nil
		for _, f := range s.feeds {
			if f.AssetType == assetType {
				feeds = append(feeds, f)
			}
		}
	}
	return append([]domain.Feed(nil), feeds...), nil
}

func (s *stubHistoryReader) GetCandlestickData(ctx context.Context, channel, symbol, resolution string, from, to int64) (domain.OHLCSeries, error) {
	s.candlesCalls++
	s.lastCandleChannel = channel
	s.lastCandleSymbol = symbol
	s.lastCandleResolution = resolution
	s.lastCandleFrom = from
	s.lastCandleTo = to
	if s.candlesErr != nil {
		return domain.OHLCSeries{}, s.candlesErr
	}
	return s.series, nil
}

func (s *stubHistoryReader) GetHistoricalPrice(ctx context.Context, channel string, feedIDs []int64, timestampMicros int64) ([]domain.PriceObservation, error) {
	s.priceCalls++
	s.lastPriceChannel = channel
	s.lastPriceIDs = append([]int64(nil), feedIDs...)
	s.lastPriceTimestamp = timestampMicros
	if s.priceErr != nil {
		return nil, s.priceErr
	}
	return append([]domain.PriceObservation(nil), s.observations...), nil
}

type stubLatestPriceReader struct {
	observations []domain.PriceObservation
	err          error

	calls          int
	lastToken      string
	lastSymbols    []string
	lastIDs        []int64
	lastProperties []string
	lastChannel    string
}

func (s *stubLatestPriceReader) GetLatestPrice(ctx context.Context, token string, symbols []string, feedIDs []int64, properties []string, channel string) ([]domain.PriceObservation, error) {
	s.calls++
	s.lastToken = token
	s.lastSymbols = append([]string(nil), symbols...)
	s.lastIDs = append([]int64(nil), feedIDs...)
	s.lastProperties = append([]string(nil), properties...)
	s.lastChannel = channel
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.PriceObservation(nil), s.observations...), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// catalogFeeds builds n synthetic crypto feeds plus a few recognizable
// entries the tests look up by symbol.
func catalogFeeds(n int) []domain.Feed {
	feeds := []domain.Feed{
		{PythLazerID: 1, Name: "Bitcoin", Symbol: "Crypto.BTC/USD", Description: "Bitcoin / USD", AssetType: "crypto", Exponent: -8},
		{PythLazerID: 2, Name: "Ethereum", Symbol: "Crypto.ETH/USD", Description: "Ethereum / USD", AssetType: "crypto", Exponent: -8},
		{PythLazerID: 3, Name: "Apple Inc", Symbol: "Equity.US.AAPL/USD", Description: "Apple Inc.", AssetType: "equity", Exponent: -5},
	}
	for i := len(feeds); i < n; i++ {
		feeds = append(feeds, domain.Feed{
			PythLazerID: int64(i + 1),
			Name:        fmt.Sprintf("Feed %d", i+1),
			Symbol:      fmt.Sprintf("Crypto.F%d/USD", i+1),
			AssetType:   "crypto",
			Exponent:    -8,
		})
	}
	return feeds
}

func newTestServer(history *stubHistoryReader, router *stubLatestPriceReader) *sdkmcp.Server {
	return NewServer(nil, history, router, testLogger(), ServerConfig{
		RequestTimeout: time.Second,
		DefaultChannel: domain.ChannelDefault,
	})
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeToolJSON(result *sdkmcp.CallToolResult, out any) error {
	body, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func toolText(result *sdkmcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
