package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/disc-herniation-assistant/internal/api"
	"github.com/disc-herniation-assistant/internal/app"
	"github.com/disc-herniation-assistant/internal/config"
	"github.com/disc-herniation-assistant/internal/logging"
	"github.com/disc-herniation-assistant/internal/setup"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, logCloser, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logCloser.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Data and setup subcommands
	if len(os.Args) > 1 {
		if err := setup.NewCLI(configManager, logger).Run(ctx, os.Args[1:]); err != nil {
			logger.WithError(err).Error("Command failed")
			os.Exit(1)
		}
		return
	}

	if err := configManager.Validate(); err != nil {
		logger.WithError(err).Fatal("Configuration validation failed")
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("No LLM API key configured, generated answers will fail")
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.WithError(err).Error("Failed to close resources")
		}
	}()

	logger.WithField("port", cfg.Server.Port).Info("Starting disc herniation assistant")

	server := api.NewServer(configManager, application.Session, application.Store, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
