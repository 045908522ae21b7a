package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite review store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while a review is written
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("Opened SQLite review store")

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// createSchema creates the review table and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS causality_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_code TEXT NOT NULL UNIQUE,
		suggested_category TEXT NOT NULL,
		suggested_confidence INTEGER NOT NULL DEFAULT 0,
		staff_category TEXT NOT NULL,
		assessment_scale TEXT NOT NULL,
		staff_agreed INTEGER NOT NULL DEFAULT 0,
		staff_comment TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_staff_category ON causality_reviews(staff_category);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON causality_reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates the review for a report code.
func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	if err := review.Prepare(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM causality_reviews WHERE report_code = ?",
		review.ReportCode,
	).Scan(&existingID, &createdAt)

	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE causality_reviews SET
				suggested_category = ?,
				suggested_confidence = ?,
				staff_category = ?,
				assessment_scale = ?,
				staff_agreed = ?,
				staff_comment = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(review.SuggestedCategory),
			review.SuggestedConfidence,
			string(review.StaffCategory),
			string(review.AssessmentScale),
			review.StaffAgreed,
			review.StaffComment,
			review.Notes,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}
		review.ID = existingID
		review.CreatedAt = createdAt
		review.UpdatedAt = now
		s.logger.WithFields(review.LogFields()).Info("Updated causality review")
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO causality_reviews (
			report_code, suggested_category, suggested_confidence,
			staff_category, assessment_scale, staff_agreed,
			staff_comment, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	review.ID = id
	review.CreatedAt = now
	review.UpdatedAt = now

	s.logger.WithFields(review.LogFields()).Info("Recorded causality review")
	return nil
}

// Get retrieves the review for a report code.
func (s *SQLiteStore) Get(ctx context.Context, reportCode string) (*Review, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM causality_reviews WHERE report_code = ? LIMIT 1",
		reportCode,
	)

	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return r, nil
}

// List returns reviews newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM causality_reviews ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM causality_reviews").Scan(&count)
	return count, err
}

// Delete removes a review by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM causality_reviews WHERE id = ?", id)
	return err
}

// ExportJSON exports all reviews to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports reviews from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
