package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements the Store interface using PostgreSQL.
// The causality_reviews table is created by migrations.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL review store.
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL review store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates the review for a report code.
func (s *PostgresStore) Save(ctx context.Context, review *Review) error {
	if err := review.Prepare(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO causality_reviews (
			report_code, suggested_category, suggested_confidence,
			staff_category, assessment_scale, staff_agreed,
			staff_comment, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (report_code) DO UPDATE SET
			suggested_category = EXCLUDED.suggested_category,
			suggested_confidence = EXCLUDED.suggested_confidence,
			staff_category = EXCLUDED.staff_category,
			assessment_scale = EXCLUDED.assessment_scale,
			staff_agreed = EXCLUDED.staff_agreed,
			staff_comment = EXCLUDED.staff_comment,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		review.ReportCode,
		string(review.SuggestedCategory),
		review.SuggestedConfidence,
		string(review.StaffCategory),
		string(review.AssessmentScale),
		review.StaffAgreed,
		review.StaffComment,
		review.Notes,
		now,
		now,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	review.UpdatedAt = now
	s.logger.WithFields(review.LogFields()).Info("Recorded causality review")
	return nil
}

// Get retrieves the review for a report code.
func (s *PostgresStore) Get(ctx context.Context, reportCode string) (*Review, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM causality_reviews WHERE report_code = $1 LIMIT 1",
		reportCode,
	)

	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return r, nil
}

// List returns reviews newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM causality_reviews ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var result []*Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the total number of reviews.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM causality_reviews").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// Delete removes a review by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM causality_reviews WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

// ExportJSON exports all reviews to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports reviews from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
