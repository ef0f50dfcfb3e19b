package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/disc-herniation-assistant/internal/app"
	"github.com/disc-herniation-assistant/internal/config"
	"github.com/disc-herniation-assistant/internal/logging"
	"github.com/disc-herniation-assistant/internal/mcp"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	// stdout carries the MCP protocol
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logger, logCloser, err := logging.NewLogger(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logCloser.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.WithError(err).Error("Failed to close resources")
		}
	}()

	mcpServer := mcp.NewServer(cfg.MCP, application.Session, logger)
	if err := mcpServer.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("Disc herniation assistant MCP server stopped")
}
