package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"

	"pyth-lazer-mcp/internal/client"
	"pyth-lazer-mcp/internal/config"
	mcpserver "pyth-lazer-mcp/internal/mcp"
	"pyth-lazer-mcp/pkg/tracing"
)

const defaultHTTPMaxBodyBytes int64 = 1 << 20 // 1MiB

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initTracerFunc       = tracing.InitTracer
	newHistoryClientFunc = func(cfg *config.Config, logger *slog.Logger) mcpserver.HistoryReader {
		return client.NewHistoryClient(cfg, logger)
	}
	newRouterClientFunc = func(cfg *config.Config, logger *slog.Logger) mcpserver.LatestPriceReader {
		return client.NewRouterClient(cfg, logger)
	}
	newMCPServerFunc  = mcpserver.NewServer
	newMCPHandlerFunc = mcpserver.NewHTTPTransportHandler
	runStdioFunc      = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
	fatalf               = log.Fatalf
)

func main() {
	loadEnvFunc()
	cfg, err := loadConfigFunc()
	if err != nil {
		fatalf("invalid configuration: %v", err)
		return
	}

	// stdout carries the stdio MCP transport; all logging goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		fatalf("failed to initialize tracer: %v", err)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("error shutting down tracer provider", "error", err)
		}
	}()

	historyClient := newHistoryClientFunc(cfg, logger.With("component", "history_client"))
	routerClient := newRouterClientFunc(cfg, logger.With("component", "router_client"))

	mcpSrv := newMCPServerFunc(tracer, historyClient, routerClient, logger, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
		DefaultChannel: cfg.Channel,
	})

	switch cfg.MCPTransport {
	case "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			fatalf("mcp stdio server failed: %v", err)
		}
	case "http":
		if err := runHTTPMode(cancel, cfg, mcpSrv, logger, tracer); err != nil {
			fatalf("mcp http server failed: %v", err)
		}
	default:
		fatalf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

func runHTTPMode(cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server, logger *slog.Logger, _ trace.Tracer) error {
	if cfg.MCPAuthToken == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultHTTPMaxBodyBytes,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			logger.Error("mcp http server failed", "error", err)
		}
	}()
	logger.Info("mcp http server listening", "addr", addr)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
