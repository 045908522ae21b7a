// Package config provides configuration management for the causality server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig configures the standalone MCP server. Everything comes from
// ADR_* environment variables; no config file or database is needed.
type LiteConfig struct {
	DataDir string // reviews.db and exports/ live here

	CacheMaxItems int
	CacheTTL      time.Duration
	RedisURL      string // optional shared tier

	KeywordsFile string // optional YAML vocabularies

	Transport string // only stdio is served
	HTTPPort  int

	LogLevel  string
	LogFormat string // json or text
}

// DefaultLiteConfig stores data under ~/.adr-causality.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:       filepath.Join(homeDir, ".adr-causality"),
		CacheMaxItems: 1000,
		CacheTTL:      time.Hour,
		Transport:     "stdio",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig overlays ADR_* environment variables on the defaults.
// Malformed or non-positive numbers keep the default.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	envString("ADR_DATA_DIR", &cfg.DataDir)
	envPositiveInt("ADR_CACHE_MAX_ITEMS", &cfg.CacheMaxItems)
	envDuration("ADR_CACHE_TTL", &cfg.CacheTTL)
	envString("ADR_REDIS_URL", &cfg.RedisURL)
	envString("ADR_KEYWORDS_FILE", &cfg.KeywordsFile)
	envString("ADR_TRANSPORT", &cfg.Transport)
	envPositiveInt("ADR_HTTP_PORT", &cfg.HTTPPort)
	envString("ADR_LOG_LEVEL", &cfg.LogLevel)
	envString("ADR_LOG_FORMAT", &cfg.LogFormat)

	return cfg
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envPositiveInt(key string, dst *int) {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		*dst = n
	}
}

func envDuration(key string, dst *time.Duration) {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		*dst = d
	}
}

// ReviewDBPath returns the path to the staff review SQLite database.
func (c *LiteConfig) ReviewDBPath() string {
	return filepath.Join(c.DataDir, "reviews.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data and export directories.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.ExportDir(), 0755)
}
