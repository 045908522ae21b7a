package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
)

const (
	defaultReviewPageSize = 50
	maxReviewPageSize     = 500
)

func (s *Server) requireReviews(c *gin.Context) bool {
	if s.reviews == nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrUnavailable, "Review store is not configured", "")
		return false
	}
	return true
}

// handleSaveReview handles POST /api/v1/reviews
func (s *Server) handleSaveReview(c *gin.Context) {
	if !s.requireReviews(c) {
		return
	}

	var r review.Review
	if err := c.ShouldBindJSON(&r); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Malformed review JSON", err.Error())
		return
	}
	r.ID = 0

	if err := s.reviews.Save(c.Request.Context(), &r); err != nil {
		if errors.Is(err, review.ErrInvalidReview) {
			respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, "Invalid review", err.Error())
			return
		}
		s.logger.WithError(err).WithField("report_code", r.ReportCode).Error("Failed to save review")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to save review", "")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReview(r.StaffAgreed)
	}

	c.JSON(http.StatusOK, r)
}

// handleListReviews handles GET /api/v1/reviews?limit=&offset=
func (s *Server) handleListReviews(c *gin.Context) {
	if !s.requireReviews(c) {
		return
	}

	limit, err := queryInt(c, "limit", defaultReviewPageSize)
	if err != nil || limit <= 0 {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid limit", "")
		return
	}
	limit = min(limit, maxReviewPageSize)

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid offset", "")
		return
	}

	ctx := c.Request.Context()
	reviews, err := s.reviews.List(ctx, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reviews")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to list reviews", "")
		return
	}
	total, err := s.reviews.Count(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count reviews")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to count reviews", "")
		return
	}
	if reviews == nil {
		reviews = []*review.Review{}
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetReview handles GET /api/v1/reviews/:code
func (s *Server) handleGetReview(c *gin.Context) {
	if !s.requireReviews(c) {
		return
	}

	r, err := s.reviews.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.logger.WithError(err).Error("Failed to get review")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to get review", "")
		return
	}
	if r == nil {
		respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Review not found", "")
		return
	}

	c.JSON(http.StatusOK, r)
}

// handleDeleteReview handles DELETE /api/v1/reviews/:id
func (s *Server) handleDeleteReview(c *gin.Context) {
	if !s.requireReviews(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid review ID", "")
		return
	}

	if err := s.reviews.Delete(c.Request.Context(), id); err != nil {
		s.logger.WithError(err).WithField("review_id", id).Error("Failed to delete review")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to delete review", "")
		return
	}

	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
