// Package mcp provides the MCP server implementation.
// This file contains the lightweight server that requires no external databases.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/cache"
	litecfg "github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
	"github.com/adr-causality-server/internal/service"
)

const (
	serverName    = "adr-causality-server-lite"
	serverVersion = "v" + service.EngineVersion
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching (optionally backed by Redis) and SQLite for reviews.
type LiteServer struct {
	config      *litecfg.LiteConfig
	impl        *mcp.Implementation
	mcpServer   *mcp.Server
	assessor    *service.AssessmentService
	reviewStore review.Store
	redis       *cache.RedisCache
	logger      *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithReviewStore sets a custom review store.
func WithReviewStore(store review.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.reviewStore = store
		return nil
	}
}

// WithAssessor replaces the built-in engine and cache with a preconfigured
// assessment service.
func WithAssessor(assessor *service.AssessmentService) LiteServerOption {
	return func(s *LiteServer) error {
		s.assessor = assessor
		return nil
	}
}

// WithImplementation overrides the name and version reported to clients.
func WithImplementation(name, version string) LiteServerOption {
	return func(s *LiteServer) error {
		if name == "" {
			return fmt.Errorf("server name must not be empty")
		}
		s.impl = &mcp.Implementation{Name: name, Version: version}
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: litecfg.NewLogger(cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.assessor == nil {
		if err := server.buildAssessor(); err != nil {
			return nil, err
		}
	}

	if server.reviewStore == nil {
		store, err := review.NewSQLiteStore(cfg.ReviewDBPath(), server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create review store: %w", err)
		}
		server.reviewStore = store
	}

	if server.impl == nil {
		server.impl = &mcp.Implementation{Name: serverName, Version: serverVersion}
	}
	server.mcpServer = mcp.NewServer(server.impl, nil)
	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"server_name":    server.impl.Name,
		"engine_version": service.EngineVersion,
		"cache_backend":  server.assessor.Status().CacheBackend,
	}).Info("Lite server initialized successfully")
	return server, nil
}

// buildAssessor creates the engine from the configured keyword file and
// fronts it with the memory cache, plus Redis when a URL is set.
func (s *LiteServer) buildAssessor() error {
	keywords, err := litecfg.LoadKeywordSets(s.config.KeywordsFile)
	if err != nil {
		return err
	}

	engine, err := service.NewCausalityEngine(s.logger, keywords, domain.DefaultCausalityPolicy())
	if err != nil {
		return fmt.Errorf("failed to create causality engine: %w", err)
	}

	suggestions, redisCache, err := cache.New(domain.CacheConfig{
		MaxItems:  s.config.CacheMaxItems,
		TTL:       s.config.CacheTTL,
		RedisURL:  s.config.RedisURL,
		KeyPrefix: "adr:lite:",
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create suggestion cache: %w", err)
	}
	s.redis = redisCache

	s.assessor = service.NewAssessmentService(s.logger, engine, suggestions, nil)
	return nil
}

// registerTools registers the assessment and review tools with the MCP SDK.
func (s *LiteServer) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "assess_causality",
		Description: "Assess the causality of an adverse drug reaction report with the WHO-UMC system and the Naranjo scale. Returns a suggestion for medical staff to review.",
	}, s.handleAssessCausality)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "engine_status",
		Description: "Report the causality engine version, enabled features and active policy.",
	}, s.handleEngineStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_review",
		Description: "Record the final causality category chosen by medical staff for a report, next to the engine suggestion.",
	}, s.handleRecordReview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_review",
		Description: "Get the staff review recorded for a report code.",
	}, s.handleGetReview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_reviews",
		Description: "List staff reviews, newest first.",
	}, s.handleListReviews)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_reviews",
		Description: "Export all staff reviews to a JSON file in the data directory.",
	}, s.handleExportReviews)

	s.logger.WithField("tool_count", 6).Debug("Registered MCP tools")
}

// Start runs the server over stdio until the client disconnects or ctx is done.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.WithField("transport", s.config.Transport).Info("Starting ADR Causality MCP Server (Lite)...")

	if s.config.Transport != "" && s.config.Transport != "stdio" {
		s.logger.WithField("transport", s.config.Transport).Warn("Only stdio transport is supported, falling back to stdio")
	}

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.reviewStore != nil {
		if err := s.reviewStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close review store")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close redis cache")
		}
	}
	return nil
}

// GetReviewStore returns the review store for external access.
func (s *LiteServer) GetReviewStore() review.Store {
	return s.reviewStore
}

// GetAssessor returns the assessment service for external access.
func (s *LiteServer) GetAssessor() *service.AssessmentService {
	return s.assessor
}
