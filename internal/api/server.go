// Package api serves the causality engine and review store over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/metrics"
	"github.com/adr-causality-server/internal/middleware"
	"github.com/adr-causality-server/internal/review"
	"github.com/adr-causality-server/internal/service"
)

// maxBodyBytes bounds a single request body; batches of large free-text cases fit well within it.
const maxBodyBytes = 4 << 20

// Server represents the HTTP server
type Server struct {
	cfg        *domain.Config
	logger     *logrus.Logger
	assessor   *service.AssessmentService
	reviews    review.Store
	audit      domain.AssessmentRepository
	metrics    *metrics.Metrics
	healthFunc func(ctx context.Context) error
	router     *gin.Engine
	server     *http.Server
}

// Option configures optional collaborators of the Server.
type Option func(*Server)

// WithReviewStore enables the /api/v1/reviews endpoints.
func WithReviewStore(store review.Store) Option {
	return func(s *Server) { s.reviews = store }
}

// WithAuditRepository persists every suggestion computed by POST /api/v1/assessments.
func WithAuditRepository(repo domain.AssessmentRepository) Option {
	return func(s *Server) { s.audit = repo }
}

// WithMetrics instruments requests and exposes /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDatabaseHealth adds a database check to /health.
func WithDatabaseHealth(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.healthFunc = check }
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, logger *logrus.Logger, assessor *service.AssessmentService, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		assessor: assessor,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(logger))
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).Middleware())
	}
	router.Use(middleware.BodyLimit(maxBodyBytes))

	s.router = router
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		assessments := v1.Group("/assessments")
		assessments.POST("", s.handleAssess)
		assessments.POST("/batch", s.handleAssessBatch)
		assessments.GET("/status", s.handleStatus)
		assessments.GET("/live", s.handleLive)
		assessments.GET("/:id", s.handleGetAssessment)

		reviews := v1.Group("/reviews")
		reviews.POST("", s.handleSaveReview)
		reviews.GET("", s.handleListReviews)
		reviews.GET("/:code", s.handleGetReview)
		reviews.DELETE("/:id", s.handleDeleteReview)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"engine": "ok"}
	status := http.StatusOK

	if s.healthFunc != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthFunc(ctx); err != nil {
			s.logger.WithError(err).Warn("Database health check failed")
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":         state,
		"timestamp":      time.Now().UTC(),
		"engine_version": service.EngineVersion,
		"checks":         checks,
	})
}

// respondError writes a ServiceError body.
func respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewServiceError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}

// respondAssessmentError maps engine and service errors onto HTTP statuses.
func (s *Server) respondAssessmentError(c *gin.Context, err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"code":       domain.ErrValidation,
			"message":    ve.Message,
			"field":      ve.Field,
			"request_id": c.GetString(middleware.CorrelationIDKey),
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		respondError(c, http.StatusServiceUnavailable, domain.ErrUnavailable, "Request cancelled", err.Error())
		return
	}
	s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).Error("Causality assessment failed")
	respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Assessment failed", "")
}
