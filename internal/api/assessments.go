package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/middleware"
	"github.com/adr-causality-server/internal/service"
)

// AssessmentResponse is returned for every successful assessment.
type AssessmentResponse struct {
	AssessmentID   *uuid.UUID                   `json:"assessment_id,omitempty"`
	Suggestion     *domain.AssessmentSuggestion `json:"suggestion"`
	StaffComment   string                       `json:"staff_comment"`
	SuggestedScale domain.AssessmentScale       `json:"suggested_scale"`
}

// BatchRequest carries independent cases assessed concurrently.
type BatchRequest struct {
	Cases []*domain.Case `json:"cases"`
}

// BatchItem is one slot of a batch response; exactly one of Result and Error is set.
type BatchItem struct {
	Index  int                 `json:"index"`
	Result *AssessmentResponse `json:"result,omitempty"`
	Error  *BatchItemError     `json:"error,omitempty"`
}

// BatchItemError describes why one case in a batch was not assessed.
type BatchItemError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func newAssessmentResponse(s *domain.AssessmentSuggestion) *AssessmentResponse {
	return &AssessmentResponse{
		Suggestion:     s,
		StaffComment:   service.FormatStaffComment(s),
		SuggestedScale: service.SuggestedScale(s),
	}
}

// handleAssess handles POST /api/v1/assessments
func (s *Server) handleAssess(c *gin.Context) {
	var cs domain.Case
	if err := c.ShouldBindJSON(&cs); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Malformed case JSON", err.Error())
		return
	}

	start := time.Now()
	suggestion, err := s.assessor.Assess(c.Request.Context(), &cs)
	if err != nil {
		s.respondAssessmentError(c, err)
		return
	}

	resp := newAssessmentResponse(suggestion)
	if s.audit != nil {
		record := &domain.AssessmentRecord{
			ReportCode:       cs.ReportCode,
			RequestID:        c.GetString(middleware.CorrelationIDKey),
			Case:             cs,
			Suggestion:       *suggestion,
			EngineVersion:    service.EngineVersion,
			ProcessingTimeMs: int(time.Since(start).Milliseconds()),
		}
		if err := s.audit.Create(c.Request.Context(), record); err != nil {
			// The suggestion is still useful to staff without its audit copy
			s.logger.WithError(err).WithFields(logrus.Fields{
				"report_code":    cs.ReportCode,
				"correlation_id": record.RequestID,
			}).Warn("Failed to persist assessment audit record")
		} else {
			resp.AssessmentID = &record.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleAssessBatch handles POST /api/v1/assessments/batch
func (s *Server) handleAssessBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Malformed batch JSON", err.Error())
		return
	}
	if len(req.Cases) == 0 {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Batch contains no cases", "")
		return
	}
	if limit := s.cfg.Server.MaxBatchSize; limit > 0 && len(req.Cases) > limit {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Batch too large",
			fmt.Sprintf("%d cases exceeds the limit of %d", len(req.Cases), limit))
		return
	}

	for i, cs := range req.Cases {
		if cs == nil {
			req.Cases[i] = &domain.Case{}
		}
	}

	results := s.assessor.AssessBatch(c.Request.Context(), req.Cases)
	items := make([]BatchItem, len(results))
	for i, r := range results {
		items[i] = BatchItem{Index: r.Index}
		if r.Err == nil {
			items[i].Result = newAssessmentResponse(r.Suggestion)
			continue
		}
		if ve, ok := domain.AsValidationError(r.Err); ok {
			items[i].Error = &BatchItemError{Code: domain.ErrValidation, Field: ve.Field, Message: ve.Message}
			continue
		}
		s.logger.WithError(r.Err).WithField("index", r.Index).Error("Batch item assessment failed")
		items[i].Error = &BatchItemError{Code: domain.ErrInternalServer, Message: "assessment failed"}
	}

	c.JSON(http.StatusOK, gin.H{"results": items})
}

// handleStatus handles GET /api/v1/assessments/status
func (s *Server) handleStatus(c *gin.Context) {
	status := s.assessor.Status()
	status.Persistence = s.audit != nil
	c.JSON(http.StatusOK, status)
}

// handleGetAssessment handles GET /api/v1/assessments/:id
func (s *Server) handleGetAssessment(c *gin.Context) {
	if s.audit == nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrUnavailable, "Assessment audit trail is not configured", "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid assessment ID", err.Error())
		return
	}

	record, err := s.audit.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Assessment not found", "")
			return
		}
		s.logger.WithError(err).WithField("assessment_id", id).Error("Failed to load assessment")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load assessment", "")
		return
	}

	c.JSON(http.StatusOK, record)
}
