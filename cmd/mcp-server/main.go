// Package main provides the MCP server entry point for the HSE assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mike-a-ellis/hse-assistant/internal/app"
	"github.com/mike-a-ellis/hse-assistant/internal/config"
	mcpserver "github.com/mike-a-ellis/hse-assistant/internal/mcp"
	"github.com/mike-a-ellis/hse-assistant/internal/monitor"
)

func main() {
	configPath := flag.String("config", "", "config file (overrides HSE_CONFIG)")
	flag.Parse()

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var mon *monitor.Monitor
	if cfg.Logging.InteractionLog != "" {
		if mon, err = monitor.Open(cfg.Logging.InteractionLog); err != nil {
			logger.Warn("Interaction log disabled", "error", err)
		}
		defer mon.Close()
	}

	server := mcpserver.NewServer(&mcpserver.Config{Assistant: a.System, Monitor: mon})
	mux := mcpserver.NewMux(server, a.System, nil)
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Health reports 503 until the index is ready.
	go func() {
		if !a.System.Initialize(ctx) {
			logger.Error("Assistant unavailable", "error", a.System.Status().Error)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if cfg.Server.Mode == config.ModeHTTP {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	// Stdio mode keeps the health endpoint for local testing.
	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting HSE assistant MCP server (stdio mode)")
	return server.Run(ctx)
}
