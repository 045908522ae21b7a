package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
	"github.com/adr-causality-server/internal/service"
)

// DrugParams describes one suspected drug in an assess_causality call.
type DrugParams struct {
	Name               string `json:"name"`
	DosageAndFrequency string `json:"dosage_and_frequency,omitempty"`
	StartDate          string `json:"start_date,omitempty"`
	EndDate            string `json:"end_date,omitempty"`
	Dechallenge        string `json:"reaction_improved_after_stopping"`
	Rechallenge        string `json:"reaction_reoccurred_after_rechallenge"`
}

// AssessCausalityParams defines parameters for the assess_causality tool.
// Dates are YYYY-MM-DD strings.
type AssessCausalityParams struct {
	ReportCode          string       `json:"report_code,omitempty"`
	ReactionDescription string       `json:"reaction_description"`
	ReactionOnsetTime   string       `json:"reaction_onset_time,omitempty"`
	OccurrenceDate      string       `json:"occurrence_date"`
	SeverityLevel       string       `json:"severity_level"`
	RelatedTests        string       `json:"related_tests,omitempty"`
	MedicalHistory      *string      `json:"medical_history,omitempty"`
	TreatmentResponse   string       `json:"treatment_response,omitempty"`
	SuspectedDrugs      []DrugParams `json:"suspected_drugs"`
}

// AssessCausalityResult defines the result structure for the assess_causality tool.
type AssessCausalityResult struct {
	Suggestion     *domain.AssessmentSuggestion `json:"suggestion"`
	StaffComment   string                       `json:"staff_comment"`
	SuggestedScale domain.AssessmentScale       `json:"suggested_scale"`
}

// EngineStatusParams takes no arguments.
type EngineStatusParams struct{}

// RecordReviewParams defines parameters for the record_review tool.
type RecordReviewParams struct {
	ReportCode          string `json:"report_code"`
	SuggestedCategory   string `json:"suggested_category"`
	SuggestedConfidence int    `json:"suggested_confidence"`
	StaffCategory       string `json:"staff_category"`
	AssessmentScale     string `json:"assessment_scale"`
	StaffComment        string `json:"staff_comment,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// GetReviewParams defines parameters for the get_review tool.
type GetReviewParams struct {
	ReportCode string `json:"report_code"`
}

// ListReviewsParams defines parameters for the list_reviews tool.
type ListReviewsParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportReviewsParams defines parameters for the export_reviews tool.
type ExportReviewsParams struct {
	Filename string `json:"filename,omitempty"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// toCase converts tool parameters into a domain case. Enum values are
// checked later by Case.Validate so that errors name the offending field.
func (p AssessCausalityParams) toCase() (*domain.Case, error) {
	c := &domain.Case{
		ReportCode:          p.ReportCode,
		ReactionDescription: p.ReactionDescription,
		ReactionOnsetTime:   p.ReactionOnsetTime,
		SeverityLevel:       domain.SeverityLevel(p.SeverityLevel),
		RelatedTests:        p.RelatedTests,
		MedicalHistory:      p.MedicalHistory,
		TreatmentResponse:   p.TreatmentResponse,
	}

	if p.OccurrenceDate != "" {
		d, err := domain.ParseDate(p.OccurrenceDate)
		if err != nil {
			return nil, domain.NewValidationError("occurrence_date", err.Error(), p.OccurrenceDate)
		}
		c.OccurrenceDate = d
	}

	for i, dp := range p.SuspectedDrugs {
		drug := domain.SuspectedDrug{
			Name:               dp.Name,
			DosageAndFrequency: dp.DosageAndFrequency,
			Dechallenge:        domain.DechallengeOutcome(dp.Dechallenge),
			Rechallenge:        domain.RechallengeOutcome(dp.Rechallenge),
		}
		var err error
		if drug.StartDate, err = optionalDate(dp.StartDate); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("suspected_drugs[%d].start_date", i), err.Error(), dp.StartDate)
		}
		if drug.EndDate, err = optionalDate(dp.EndDate); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("suspected_drugs[%d].end_date", i), err.Error(), dp.EndDate)
		}
		c.SuspectedDrugs = append(c.SuspectedDrugs, drug)
	}
	return c, nil
}

func optionalDate(value string) (*domain.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// handleAssessCausality handles the assess_causality tool invocation
func (s *LiteServer) handleAssessCausality(ctx context.Context, req *mcp.CallToolRequest, params AssessCausalityParams) (*mcp.CallToolResult, any, error) {
	c, err := params.toCase()
	if err != nil {
		return s.createErrorResult("Invalid case", err), nil, nil
	}

	suggestion, err := s.assessor.Assess(ctx, c)
	if err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			return s.createErrorResult("Invalid case", ve), nil, nil
		}
		s.logger.WithError(err).Error("Causality assessment failed")
		return s.createErrorResult("Assessment failed", err), nil, nil
	}

	return s.jsonResult(AssessCausalityResult{
		Suggestion:     suggestion,
		StaffComment:   service.FormatStaffComment(suggestion),
		SuggestedScale: service.SuggestedScale(suggestion),
	})
}

// handleEngineStatus handles the engine_status tool invocation
func (s *LiteServer) handleEngineStatus(ctx context.Context, req *mcp.CallToolRequest, params EngineStatusParams) (*mcp.CallToolResult, any, error) {
	return s.jsonResult(s.assessor.Status())
}

// handleRecordReview handles the record_review tool invocation
func (s *LiteServer) handleRecordReview(ctx context.Context, req *mcp.CallToolRequest, params RecordReviewParams) (*mcp.CallToolResult, any, error) {
	r := &review.Review{
		ReportCode:          params.ReportCode,
		SuggestedCategory:   domain.CausalityLevel(params.SuggestedCategory),
		SuggestedConfidence: params.SuggestedConfidence,
		StaffCategory:       domain.WHOLevel(params.StaffCategory),
		AssessmentScale:     domain.AssessmentScale(params.AssessmentScale),
		StaffComment:        params.StaffComment,
		Notes:               params.Notes,
	}

	if err := s.reviewStore.Save(ctx, r); err != nil {
		if errors.Is(err, review.ErrInvalidReview) {
			return s.createErrorResult("Invalid review", err), nil, nil
		}
		s.logger.WithError(err).Error("Failed to save review")
		return s.createErrorResult("Failed to save review", err), nil, nil
	}

	s.logger.WithFields(logrus.Fields(r.LogFields())).Info("Review recorded")
	return s.jsonResult(r)
}

// handleGetReview handles the get_review tool invocation
func (s *LiteServer) handleGetReview(ctx context.Context, req *mcp.CallToolRequest, params GetReviewParams) (*mcp.CallToolResult, any, error) {
	if params.ReportCode == "" {
		return s.createErrorResult("Invalid request", errors.New("report_code is required")), nil, nil
	}

	r, err := s.reviewStore.Get(ctx, params.ReportCode)
	if err != nil {
		return s.createErrorResult("Failed to get review", err), nil, nil
	}
	if r == nil {
		return s.createErrorResult("Review not found", fmt.Errorf("no review for report %s", params.ReportCode)), nil, nil
	}
	return s.jsonResult(r)
}

// handleListReviews handles the list_reviews tool invocation
func (s *LiteServer) handleListReviews(ctx context.Context, req *mcp.CallToolRequest, params ListReviewsParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(params.Offset, 0)

	reviews, err := s.reviewStore.List(ctx, limit, offset)
	if err != nil {
		return s.createErrorResult("Failed to list reviews", err), nil, nil
	}
	total, err := s.reviewStore.Count(ctx)
	if err != nil {
		return s.createErrorResult("Failed to count reviews", err), nil, nil
	}

	return s.jsonResult(map[string]any{
		"reviews": reviews,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleExportReviews handles the export_reviews tool invocation
func (s *LiteServer) handleExportReviews(ctx context.Context, req *mcp.CallToolRequest, params ExportReviewsParams) (*mcp.CallToolResult, any, error) {
	name := filepath.Base(params.Filename)
	if params.Filename == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("reviews-%s.json", time.Now().UTC().Format("20060102-150405"))
	}
	path := filepath.Join(s.config.ExportDir(), name)

	f, err := os.Create(path)
	if err != nil {
		return s.createErrorResult("Failed to create export file", err), nil, nil
	}
	defer f.Close()

	if err := s.reviewStore.ExportJSON(ctx, f); err != nil {
		return s.createErrorResult("Failed to export reviews", err), nil, nil
	}

	count, err := s.reviewStore.Count(ctx)
	if err != nil {
		return s.createErrorResult("Failed to count reviews", err), nil, nil
	}

	s.logger.WithFields(logrus.Fields{"path": path, "count": count}).Info("Reviews exported")
	return s.jsonResult(map[string]any{"path": path, "count": count})
}

// jsonResult wraps a value as JSON text content.
func (s *LiteServer) jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// createErrorResult creates an error result for tool responses
func (s *LiteServer) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := message
	if err != nil {
		errorText = fmt.Sprintf("%s: %v", message, err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
