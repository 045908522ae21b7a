// Command mcp-server-lite serves the causality tools over MCP stdio with no
// external services: memory cache and a SQLite review store under ADR_DATA_DIR.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/mcp"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.LoadLiteConfig()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if envErr != nil && !os.IsNotExist(envErr) {
		logger.WithError(envErr).Warn("Ignoring .env")
	}

	logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"data_dir":  cfg.DataDir,
		"redis":     cfg.RedisURL != "",
	}).Info("Starting ADR causality MCP server (lite)")

	server, err := mcp.NewLiteServer(cfg, mcp.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = server.Start(ctx)
	interrupted := ctx.Err() != nil
	stop()

	if cerr := server.Close(); cerr != nil {
		logger.WithError(cerr).Warn("Closing MCP server")
	}
	if err != nil && !interrupted {
		logger.WithError(err).Error("MCP server failed")
		os.Exit(1)
	}

	logger.Info("ADR causality MCP server (lite) stopped")
}
