// Package review stores the medical staff's final causality decision next to
// the engine's suggestion, one record per report code.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adr-causality-server/internal/domain"
)

// ErrInvalidReview is returned by Save for incomplete or out-of-range records.
var ErrInvalidReview = errors.New("invalid review")

// Review is the staff decision for one ADR report.
type Review struct {
	ID                  int64                  `json:"id,omitempty"`
	ReportCode          string                 `json:"report_code"`
	SuggestedCategory   domain.CausalityLevel  `json:"suggested_category"`      // Engine recommendation
	SuggestedConfidence int                    `json:"suggested_confidence"`    // Engine confidence 0-95
	StaffCategory       domain.WHOLevel        `json:"staff_category"`          // Staff decision, one of six WHO categories
	AssessmentScale     domain.AssessmentScale `json:"assessment_scale"`        // Scale the staff applied
	StaffAgreed         bool                   `json:"staff_agreed"`            // Computed on save
	StaffComment        string                 `json:"staff_comment,omitempty"` // Text copied to medical_staff_comment
	Notes               string                 `json:"notes,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Prepare validates the review and derives StaffAgreed. Administrative WHO
// categories never count as agreement.
func (r *Review) Prepare() error {
	r.ReportCode = strings.TrimSpace(r.ReportCode)
	if r.ReportCode == "" {
		return fmt.Errorf("%w: report_code is required", ErrInvalidReview)
	}
	if !r.SuggestedCategory.IsValid() {
		return fmt.Errorf("%w: suggested_category %q", ErrInvalidReview, r.SuggestedCategory)
	}
	if r.SuggestedConfidence < 0 || r.SuggestedConfidence > domain.MaxConfidenceCeiling {
		return fmt.Errorf("%w: suggested_confidence %d out of range", ErrInvalidReview, r.SuggestedConfidence)
	}
	if !r.StaffCategory.IsValid() {
		return fmt.Errorf("%w: staff_category %q", ErrInvalidReview, r.StaffCategory)
	}
	if !r.AssessmentScale.IsValid() {
		return fmt.Errorf("%w: assessment_scale %q", ErrInvalidReview, r.AssessmentScale)
	}

	r.StaffAgreed = false
	if !r.StaffCategory.IsAdministrative() {
		level, err := r.StaffCategory.Ordinal()
		if err != nil {
			return err
		}
		r.StaffAgreed = level == r.SuggestedCategory
	}
	return nil
}

// LogFields returns non-clinical fields for structured logging.
func (r *Review) LogFields() map[string]any {
	return map[string]any{
		"report_code":        r.ReportCode,
		"suggested_category": string(r.SuggestedCategory),
		"staff_category":     string(r.StaffCategory),
		"staff_agreed":       r.StaffAgreed,
	}
}

// Store defines the interface for review storage operations.
type Store interface {
	// Save validates and stores a review. An existing review for the same
	// report code is updated in place.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for a report code, or nil if none exists.
	Get(ctx context.Context, reportCode string) (*Review, error)

	// List returns reviews newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all reviews to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports reviews from a JSON reader, skipping report codes
	// that already have a review.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// ReviewExport represents the JSON export format.
type ReviewExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}

// ExportVersion is written into every export.
const ExportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `id, report_code, suggested_category, suggested_confidence,
	staff_category, assessment_scale, staff_agreed, staff_comment, notes,
	created_at, updated_at`

// scanReview scans a row into a Review struct.
func scanReview(s scanner) (*Review, error) {
	r := &Review{}
	var suggested, staff, scale string

	err := s.Scan(
		&r.ID, &r.ReportCode, &suggested, &r.SuggestedConfidence,
		&staff, &scale, &r.StaffAgreed, &r.StaffComment, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.SuggestedCategory = domain.CausalityLevel(suggested)
	r.StaffCategory = domain.WHOLevel(staff)
	r.AssessmentScale = domain.AssessmentScale(scale)
	return r, nil
}

// exportJSON writes reviews in the export envelope.
func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	if all == nil {
		all = []*Review{}
	}

	export := &ReviewExport{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Reviews:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importJSON reads an export envelope and saves reviews for unseen report codes.
func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export ReviewExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, r := range export.Reviews {
		if r == nil {
			skipped++
			continue
		}
		existing, err := store.Get(ctx, r.ReportCode)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		r.ID = 0
		if err := store.Save(ctx, r); err != nil {
			return imported, skipped, fmt.Errorf("failed to save review %s: %w", r.ReportCode, err)
		}
		imported++
	}

	return imported, skipped, nil
}
