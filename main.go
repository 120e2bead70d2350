package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trip-agent/config"
	"trip-agent/llmclient"
	"trip-agent/rag"
	"trip-agent/search"
	"trip-agent/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	if cfg.TavilyAPIKey == "" || cfg.GeminiAPIKey == "" {
		logger.Fatal("TAVILY_API_KEY and GEMINI_API_KEY must be configured")
	}

	searchClient, err := search.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize search client", zap.Error(err))
	}
	llmClient := llmclient.New(cfg, logger)

	pipeline := rag.New(cfg, searchClient, llmClient, llmClient, logger)
	webServer := web.NewServer(pipeline, logger, cfg)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting trip planner retrieval server", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
