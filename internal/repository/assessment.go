package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
)

// DefaultListLimit caps ListByReportCode when the caller passes no limit.
const DefaultListLimit = 50

// Querier is the subset of *pgxpool.Pool used by the repository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AssessmentRepository persists assessment audit records. Records are
// append-only; the case snapshot and suggestion are stored as JSONB.
type AssessmentRepository struct {
	db  Querier
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db Querier, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

var _ domain.AssessmentRepository = (*AssessmentRepository)(nil)

// Create inserts a new audit record, assigning ID and CreatedAt when unset.
func (r *AssessmentRepository) Create(ctx context.Context, record *domain.AssessmentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	caseJSON, err := json.Marshal(record.Case)
	if err != nil {
		return fmt.Errorf("encoding case snapshot: %w", err)
	}
	suggestionJSON, err := json.Marshal(record.Suggestion)
	if err != nil {
		return fmt.Errorf("encoding suggestion: %w", err)
	}

	query := `
		INSERT INTO causality_assessments (
			id, report_code, request_id, case_snapshot, suggestion,
			overall_recommendation, who_level, naranjo_score, confidence,
			engine_version, processing_time_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.ReportCode,
		record.RequestID,
		caseJSON,
		suggestionJSON,
		string(record.Suggestion.OverallRecommendation),
		string(record.Suggestion.WHOResult.SuggestedLevel),
		record.Suggestion.NaranjoResult.TotalScore,
		record.Suggestion.Confidence,
		record.EngineVersion,
		record.ProcessingTimeMs,
		record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": record.ID,
			"report_code":   record.ReportCode,
			"error":         err,
		}).Error("Failed to create assessment record")
		return fmt.Errorf("creating assessment record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id":  record.ID,
		"report_code":    record.ReportCode,
		"recommendation": record.Suggestion.OverallRecommendation,
		"confidence":     record.Suggestion.Confidence,
	}).Info("Assessment record created")

	return nil
}

const selectAssessment = `
		SELECT id, report_code, request_id, case_snapshot, suggestion,
			   engine_version, processing_time_ms, created_at
		FROM causality_assessments`

// GetByID retrieves an audit record by its ID
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AssessmentRecord, error) {
	record, err := scanAssessment(r.db.QueryRow(ctx, selectAssessment+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment by ID")
		return nil, fmt.Errorf("getting assessment by ID: %w", err)
	}
	return record, nil
}

// ListByReportCode returns the audit history of one report, newest first.
func (r *AssessmentRepository) ListByReportCode(ctx context.Context, reportCode string, limit int) ([]*domain.AssessmentRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(ctx,
		selectAssessment+` WHERE report_code = $1 ORDER BY created_at DESC LIMIT $2`,
		reportCode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	records := []*domain.AssessmentRecord{}
	for rows.Next() {
		record, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}
	return records, nil
}

func scanAssessment(row pgx.Row) (*domain.AssessmentRecord, error) {
	var record domain.AssessmentRecord
	var caseJSON, suggestionJSON []byte

	err := row.Scan(
		&record.ID,
		&record.ReportCode,
		&record.RequestID,
		&caseJSON,
		&suggestionJSON,
		&record.EngineVersion,
		&record.ProcessingTimeMs,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(caseJSON, &record.Case); err != nil {
		return nil, fmt.Errorf("decoding case snapshot: %w", err)
	}
	if err := json.Unmarshal(suggestionJSON, &record.Suggestion); err != nil {
		return nil, fmt.Errorf("decoding suggestion: %w", err)
	}
	return &record, nil
}
