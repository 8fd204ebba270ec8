package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"pyth-lazer-mcp/internal/domain"
)

const (
	defaultRouterURL        = "https://pyth-lazer.dourolabs.app"
	defaultHistoryURL       = "https://history.pyth-lazer.dourolabs.app"
	defaultRequestTimeoutMs = 10_000
)

// Config carries everything read from the environment at startup. Base URLs
// must be HTTPS; both are validated before any client is constructed.
type Config struct {
	Channel          string `validate:"required"`
	RouterURL        string `validate:"required,url,startswith=https://"`
	HistoryURL       string `validate:"required,url,startswith=https://"`
	LogLevel         string `validate:"oneof=debug info warn error"`
	RequestTimeoutMs int    `validate:"gt=0"`

	MCPTransport          string `validate:"oneof=stdio http"`
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
}

func Load() (*Config, error) {
	cfg := &Config{
		Channel:          envOr("PYTH_CHANNEL", domain.ChannelDefault),
		RouterURL:        envOr("PYTH_ROUTER_URL", defaultRouterURL),
		HistoryURL:       envOr("PYTH_HISTORY_URL", defaultHistoryURL),
		LogLevel:         envOr("PYTH_LOG_LEVEL", "info"),
		RequestTimeoutMs: envIntOr("PYTH_REQUEST_TIMEOUT_MS", defaultRequestTimeoutMs),

		MCPTransport:          strings.ToLower(envOr("MCP_TRANSPORT", "stdio")),
		MCPHTTPBind:           envOr("MCP_HTTP_BIND", "127.0.0.1"),
		MCPHTTPPort:           envIntOr("MCP_HTTP_PORT", 8090),
		MCPAuthToken:          os.Getenv("MCP_AUTH_TOKEN"),
		MCPRequestTimeoutSecs: envIntOr("MCP_REQUEST_TIMEOUT_SECS", 30),
		MCPRateLimitPerMin:    envIntOr("MCP_RATE_LIMIT_PER_MIN", 60),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// SlogLevel maps the configured log level onto slog's scale.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
