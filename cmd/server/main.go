package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/api"
	"github.com/adr-causality-server/internal/cache"
	"github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/database"
	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/metrics"
	"github.com/adr-causality-server/internal/repository"
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
	if configManager.IsProduction() || logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	engine, err := service.NewCausalityEngine(logger, configManager.GetKeywordSets(), configManager.GetCausalityPolicy())
	if err != nil {
		return fmt.Errorf("failed to create causality engine: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	suggestionCache, redisCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return err
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	assessor := service.NewAssessmentService(logger, engine, suggestionCache, m)
	opts := []api.Option{api.WithMetrics(m)}

	if cfg.Database.Enabled() {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := runMigrations(ctx, cfg.Database, logger); err != nil {
			return err
		}

		opts = append(opts,
			api.WithAuditRepository(repository.NewAssessmentRepository(db.Pool, logger)),
			api.WithDatabaseHealth(db.Health),
		)
	}

	store, err := newReviewStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	opts = append(opts, api.WithReviewStore(store))

	logger.WithFields(logrus.Fields{
		"host":           cfg.Server.Host,
		"port":           cfg.Server.Port,
		"engine_version": service.EngineVersion,
		"cache_backend":  suggestionCache.Backend(),
		"review_backend": cfg.Review.Backend,
		"audit_trail":    cfg.Database.Enabled(),
	}).Info("Starting ADR Causality Server")

	return api.NewServer(cfg, logger, assessor, opts...).Start(ctx)
}

func runMigrations(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) error {
	path := cfg.MigrationsPath
	if path == "" {
		path = "migrations"
	}
	runner, err := database.NewMigrationRunner(config.DatabaseURL(cfg), path, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up(ctx)
}

func newReviewStore(cfg *domain.Config, logger *logrus.Logger) (review.Store, error) {
	if cfg.Review.Backend == "postgres" {
		return review.NewPostgresStoreFromURL(config.DatabaseURL(cfg.Database), logger)
	}
	return review.NewSQLiteStore(cfg.Review.SQLitePath, logger)
}
