package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLiteConfig_UnparseableDuration(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("ADR_CACHE_TTL", "soon")

	assert.Equal(t, time.Hour, LoadLiteConfig().CacheTTL)
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.KeywordsFile)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("ADR_DATA_DIR", "/tmp/test-adr")
	t.Setenv("ADR_CACHE_MAX_ITEMS", "500")
	t.Setenv("ADR_CACHE_TTL", "12h")
	t.Setenv("ADR_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADR_KEYWORDS_FILE", "/etc/adr/keywords.yaml")
	t.Setenv("ADR_TRANSPORT", "http")
	t.Setenv("ADR_HTTP_PORT", "9090")
	t.Setenv("ADR_LOG_LEVEL", "debug")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-adr", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "/etc/adr/keywords.yaml", cfg.KeywordsFile)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_IgnoresMalformedNumbers(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("ADR_CACHE_MAX_ITEMS", "-3")
	t.Setenv("ADR_CACHE_TTL", "-5m")
	t.Setenv("ADR_HTTP_PORT", "http")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_ReviewDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.adr-causality"}

	assert.Equal(t, "/home/user/.adr-causality/reviews.db", cfg.ReviewDBPath())
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.adr-causality"}

	assert.Equal(t, "/home/user/.adr-causality/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "adr")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"ADR_DATA_DIR",
		"ADR_CACHE_MAX_ITEMS",
		"ADR_CACHE_TTL",
		"ADR_REDIS_URL",
		"ADR_KEYWORDS_FILE",
		"ADR_TRANSPORT",
		"ADR_HTTP_PORT",
		"ADR_LOG_LEVEL",
		"ADR_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
