// Package main provides the hse CLI: ask questions, chat, and manage the
// document index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/hse-assistant/internal/app"
	"github.com/mike-a-ellis/hse-assistant/internal/config"
	"github.com/mike-a-ellis/hse-assistant/internal/monitor"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hse",
	Short: "HSE assistant for the mining industry",
	Long: `Answers health, safety and environment questions from the site HSE
documents using retrieval-augmented generation.

Environment variables:
  HSE_CONFIG      Config file (default: config.yaml)
  GROQ_API_KEY    API key of the default language model provider
  QDRANT_HOST     Qdrant hostname when index.backend is qdrant
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY  Qdrant API key (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (overrides HSE_CONFIG)")
	rootCmd.AddCommand(askCmd, chatCmd, indexCmd, diagnoseCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openApp loads the configuration and wires the components.
func openApp() (*app.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	return a, nil
}

// openMonitor opens the interaction log. Failing to open it is logged and
// not fatal.
func openMonitor(cfg *config.Config) *monitor.Monitor {
	if cfg.Logging.InteractionLog == "" {
		return nil
	}
	mon, err := monitor.Open(cfg.Logging.InteractionLog)
	if err != nil {
		slog.Warn("Interaction log disabled", "error", err)
		return nil
	}
	return mon
}
