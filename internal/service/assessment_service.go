package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adr-causality-server/internal/domain"
)

// DefaultBatchConcurrency bounds the number of cases assessed at once in a batch.
const DefaultBatchConcurrency = 8

// SuggestionCache stores computed suggestions by case fingerprint.
type SuggestionCache interface {
	Get(ctx context.Context, key string) (*domain.AssessmentSuggestion, bool)
	Set(ctx context.Context, key string, suggestion *domain.AssessmentSuggestion)
	Backend() string
}

// AssessmentObserver receives assessment outcomes, typically for metrics.
type AssessmentObserver interface {
	ObserveAssessment(suggestion *domain.AssessmentSuggestion, duration time.Duration, cached bool)
	ObserveRejection(field string)
}

// BatchResult is the outcome for one case in a batch; exactly one of Suggestion and Err is set.
type BatchResult struct {
	Index      int                          `json:"index"`
	Suggestion *domain.AssessmentSuggestion `json:"suggestion,omitempty"`
	Err        error                        `json:"-"`
}

// AssessmentService wraps the causality engine with caching, metrics and batch execution.
type AssessmentService struct {
	logger      *logrus.Logger
	engine      *CausalityEngine
	cache       SuggestionCache
	observer    AssessmentObserver
	concurrency int
}

// NewAssessmentService creates a new assessment service. cache and observer may be nil.
func NewAssessmentService(logger *logrus.Logger, engine *CausalityEngine, cache SuggestionCache, observer AssessmentObserver) *AssessmentService {
	return &AssessmentService{
		logger:      logger,
		engine:      engine,
		cache:       cache,
		observer:    observer,
		concurrency: DefaultBatchConcurrency,
	}
}

// WithBatchConcurrency overrides the batch worker limit.
func (s *AssessmentService) WithBatchConcurrency(n int) *AssessmentService {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Assess returns the suggestion for a case, serving repeated identical cases from the cache.
func (s *AssessmentService) Assess(ctx context.Context, c *domain.Case) (*domain.AssessmentSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	if err := c.Validate(); err != nil {
		if ve, ok := domain.AsValidationError(err); ok && s.observer != nil {
			s.observer.ObserveRejection(ve.Field)
		}
		s.logger.WithError(err).WithField("report_code", reportCodeOf(c)).Warn("Case failed validation")
		return nil, err
	}

	key, err := s.CacheKey(c)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.WithFields(logrus.Fields{
				"report_code": c.ReportCode,
				"cache":       s.cache.Backend(),
			}).Debug("Serving cached causality suggestion")
			s.observe(cached, time.Since(startTime), true)
			return cloneSuggestion(cached), nil
		}
	}

	suggestion, err := s.engine.AssessCausality(c)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, cloneSuggestion(suggestion))
	}
	s.observe(suggestion, time.Since(startTime), false)

	return suggestion, nil
}

// AssessBatch assesses independent cases concurrently. Results keep input order and
// each carries its own error; one invalid case does not affect the others.
func (s *AssessmentService) AssessBatch(ctx context.Context, cases []*domain.Case) []BatchResult {
	results := make([]BatchResult, len(cases))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range cases {
		g.Go(func() error {
			suggestion, err := s.Assess(ctx, c)
			results[i] = BatchResult{Index: i, Suggestion: suggestion, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"batch_size": len(cases),
		"failed":     failed,
	}).Info("Completed batch causality assessment")

	return results
}

// Status reports the engine configuration and cache backend.
func (s *AssessmentService) Status() domain.EngineStatus {
	status := s.engine.Status()
	status.CacheBackend = "none"
	if s.cache != nil {
		status.CacheBackend = s.cache.Backend()
	}
	return status
}

// CacheKey fingerprints the clinical content of a case together with the engine
// configuration. The report code is excluded so identical cases share an entry.
func (s *AssessmentService) CacheKey(c *domain.Case) (string, error) {
	content := c.Clone()
	content.ReportCode = ""

	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode case for cache key: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(s.engine.Fingerprint()))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *AssessmentService) observe(suggestion *domain.AssessmentSuggestion, d time.Duration, cached bool) {
	if s.observer != nil {
		s.observer.ObserveAssessment(suggestion, d, cached)
	}
}

func cloneSuggestion(in *domain.AssessmentSuggestion) *domain.AssessmentSuggestion {
	if in == nil {
		return nil
	}
	out := *in
	out.Reasoning = make([]string, len(in.Reasoning))
	copy(out.Reasoning, in.Reasoning)
	out.Warnings = make([]string, len(in.Warnings))
	copy(out.Warnings, in.Warnings)
	return &out
}
