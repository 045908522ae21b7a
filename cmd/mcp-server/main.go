// Package main runs the MCP server with the full configuration: viper config
// files, policy overrides, a shared Redis cache and the configured review backend.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/cache"
	"github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/mcp"
	"github.com/adr-causality-server/internal/review"
	"github.com/adr-causality-server/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env: %v", err)
	}

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}
	logger.Info("MCP server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	engine, err := service.NewCausalityEngine(logger, configManager.GetKeywordSets(), configManager.GetCausalityPolicy())
	if err != nil {
		return fmt.Errorf("failed to create causality engine: %w", err)
	}

	suggestions, redisCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return err
	}
	if redisCache != nil {
		defer redisCache.Close()
	}
	assessor := service.NewAssessmentService(logger, engine, suggestions, nil)

	var store review.Store
	if cfg.Review.Backend == "postgres" {
		store, err = review.NewPostgresStoreFromURL(configManager.GetDatabaseConnectionString(), logger)
	} else {
		store, err = review.NewSQLiteStore(cfg.Review.SQLitePath, logger)
	}
	if err != nil {
		return err
	}

	// LiteConfig supplies the export directory; the rest comes from cfg.
	liteCfg := config.LoadLiteConfig()
	server, err := mcp.NewLiteServer(liteCfg,
		mcp.WithLogger(logger),
		mcp.WithAssessor(assessor),
		mcp.WithReviewStore(store),
		mcp.WithImplementation(cfg.MCP.ServerName, cfg.MCP.ServerVersion),
	)
	if err != nil {
		store.Close()
		return err
	}
	defer server.Close()

	return server.Start(ctx)
}
