package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adr-causality-server/internal/domain"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*domain.AssessmentSuggestion
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.AssessmentSuggestion)}
}

func (m *mapCache) Get(_ context.Context, key string) (*domain.AssessmentSuggestion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[key]
	if ok {
		m.hits++
	}
	return s, ok
}

func (m *mapCache) Set(_ context.Context, key string, s *domain.AssessmentSuggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = s
}

func (m *mapCache) Backend() string { return "map" }

type recordingObserver struct {
	mu         sync.Mutex
	assessed   int
	cached     int
	rejections []string
}

func (r *recordingObserver) ObserveAssessment(_ *domain.AssessmentSuggestion, _ time.Duration, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessed++
	if cached {
		r.cached++
	}
}

func (r *recordingObserver) ObserveRejection(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, field)
}

func TestAssessmentService_CachesIdenticalCases(t *testing.T) {
	cache := newMapCache()
	observer := &recordingObserver{}
	svc := NewAssessmentService(newTestLogger(), newTestEngine(t), cache, observer)

	c := minimalCase()
	c.ReactionOnsetTime = "2 giờ"

	first, err := svc.Assess(context.Background(), c)
	require.NoError(t, err)

	other := c.Clone()
	other.ReportCode = "ADR-OTHER"
	second, err := svc.Assess(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits, "report code must not affect the cache key")
	assert.Equal(t, 2, observer.assessed)
	assert.Equal(t, 1, observer.cached)

	second.Warnings = append(second.Warnings, "mutated")
	third, err := svc.Assess(context.Background(), c)
	require.NoError(t, err)
	assert.NotContains(t, third.Warnings, "mutated")
}

func TestAssessmentService_CacheKeyDependsOnContent(t *testing.T) {
	svc := NewAssessmentService(newTestLogger(), newTestEngine(t), nil, nil)

	a := minimalCase()
	b := minimalCase()
	b.RelatedTests = "CRP 40"

	keyA, err := svc.CacheKey(a)
	require.NoError(t, err)
	keyB, err := svc.CacheKey(b)
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyB)
	assert.Len(t, keyA, 64)
}

func TestAssessmentService_RejectsInvalidCase(t *testing.T) {
	observer := &recordingObserver{}
	svc := NewAssessmentService(newTestLogger(), newTestEngine(t), newMapCache(), observer)

	c := minimalCase()
	c.SuspectedDrugs = nil

	suggestion, err := svc.Assess(context.Background(), c)
	assert.Nil(t, suggestion)
	assert.ErrorIs(t, err, domain.ErrInvalidCase)
	assert.Equal(t, []string{"suspected_drugs"}, observer.rejections)
	assert.Zero(t, observer.assessed)
}

func TestAssessmentService_CancelledContext(t *testing.T) {
	svc := NewAssessmentService(newTestLogger(), newTestEngine(t), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Assess(ctx, minimalCase())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAssessmentService_AssessBatch(t *testing.T) {
	svc := NewAssessmentService(newTestLogger(), newTestEngine(t), newMapCache(), nil).WithBatchConcurrency(2)

	invalid := minimalCase()
	invalid.ReactionDescription = ""

	fatal := minimalCase()
	fatal.SeverityLevel = domain.DEATH

	cases := []*domain.Case{minimalCase(), invalid, fatal, minimalCase()}
	results := svc.AssessBatch(context.Background(), cases)

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, domain.ErrInvalidCase)
	assert.Nil(t, results[1].Suggestion)
	require.NoError(t, results[2].Err)
	assert.Contains(t, results[2].Suggestion.Warnings, WarningFatalCase)
	assert.Equal(t, results[0].Suggestion, results[3].Suggestion)
}

func TestAssessmentService_Status(t *testing.T) {
	withCache := NewAssessmentService(newTestLogger(), newTestEngine(t), newMapCache(), nil)
	assert.Equal(t, "map", withCache.Status().CacheBackend)

	withoutCache := NewAssessmentService(newTestLogger(), newTestEngine(t), nil, nil)
	assert.Equal(t, "none", withoutCache.Status().CacheBackend)
}

func TestFormatStaffComment(t *testing.T) {
	suggestion := &domain.AssessmentSuggestion{
		OverallRecommendation: domain.PROBABLE,
		Confidence:            77,
		Reasoning:             []string{"WHO-UMC probable.", "Naranjo total score 5."},
		Warnings:              []string{WarningMissingTests},
	}

	comment := FormatStaffComment(suggestion)
	assert.Contains(t, comment, "AI suggestion: probable (confidence 77%)")
	assert.Contains(t, comment, "Reasoning: WHO-UMC probable.; Naranjo total score 5.")
	assert.Contains(t, comment, "Warnings: "+WarningMissingTests)
	assert.Contains(t, comment, StaffReviewNotice)
}

func TestSuggestedScale(t *testing.T) {
	s := &domain.AssessmentSuggestion{}
	s.NaranjoResult.TotalScore = 3
	assert.Equal(t, domain.SCALE_NARANJO, SuggestedScale(s))

	s.NaranjoResult.TotalScore = 0
	assert.Equal(t, domain.SCALE_WHO, SuggestedScale(s))

	s.NaranjoResult.TotalScore = -2
	assert.Equal(t, domain.SCALE_WHO, SuggestedScale(s))
}
