package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/database"
	"github.com/adr-causality-server/internal/domain"
)

func setupTestDB(t *testing.T) *database.DB {
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "testdb",
		Username:        "testuser",
		Password:        "testpass",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := database.NewMigrationRunner(config.DatabaseURL(cfg), "../../migrations", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Up(ctx), "second run is a no-op")

	status, err := runner.Status()
	require.NoError(t, err)
	require.True(t, status.Applied)
	require.False(t, status.Dirty)
	require.EqualValues(t, 2, status.Version)
	require.NoError(t, runner.Close())

	db, err := database.NewConnection(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Health(ctx))
	return db
}

func TestAssessmentRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db.Pool, newTestLogger())
	ctx := context.Background()

	first := sampleRecord()
	first.CreatedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, first))

	second := sampleRecord()
	second.Suggestion.Confidence = 80
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReportCode, got.ReportCode)
	assert.Equal(t, domain.WHO_PROBABLE, got.Suggestion.WHOResult.SuggestedLevel)

	history, err := repo.ListByReportCode(ctx, "ADR-2024-001", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")

	none, err := repo.ListByReportCode(ctx, "ADR-UNKNOWN", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
