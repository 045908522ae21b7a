package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adr-causality-server/internal/domain"
)

func TestWHOUMCAnalyzer_Criteria(t *testing.T) {
	analyzer := NewWHOUMCAnalyzer(newTestLogger(), domain.DefaultKeywordSets())

	tests := []struct {
		name   string
		mutate func(c *domain.Case)
		check  func(t *testing.T, cr domain.WHOCriteria)
	}{
		{
			name:   "onset in hours",
			mutate: func(c *domain.Case) { c.ReactionOnsetTime = "khoảng 2 giờ sau tiêm" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriTrue, cr.TemporalRelationship)
			},
		},
		{
			name:   "onset in months",
			mutate: func(c *domain.Case) { c.ReactionOnsetTime = "3 tháng" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriFalse, cr.TemporalRelationship)
			},
		},
		{
			name:   "short latency wins over long latency",
			mutate: func(c *domain.Case) { c.ReactionOnsetTime = "2 giờ sau liều đầu, đã điều trị 1 năm" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriTrue, cr.TemporalRelationship)
			},
		},
		{
			name:   "decomposed Vietnamese diacritics",
			mutate: func(c *domain.Case) { c.ReactionOnsetTime = "2 gio\u031b\u0300" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriTrue, cr.TemporalRelationship)
			},
		},
		{
			name:   "ambiguous onset",
			mutate: func(c *domain.Case) { c.ReactionOnsetTime = "không rõ" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriUnknown, cr.TemporalRelationship)
			},
		},
		{
			name:   "absent history is unknown",
			mutate: func(c *domain.Case) { c.MedicalHistory = nil },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriUnknown, cr.NoAlternativeCause)
			},
		},
		{
			name:   "history with infection",
			mutate: func(c *domain.Case) { c.MedicalHistory = strPtr("Nhiễm trùng đường tiết niệu") },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriFalse, cr.NoAlternativeCause)
			},
		},
		{
			name:   "clean history",
			mutate: func(c *domain.Case) { c.MedicalHistory = strPtr("Hypertension, controlled") },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriTrue, cr.NoAlternativeCause)
			},
		},
		{
			name: "any positive dechallenge wins",
			mutate: func(c *domain.Case) {
				c.SuspectedDrugs = []domain.SuspectedDrug{
					{Name: "A", Dechallenge: domain.DECHALLENGE_NO, Rechallenge: domain.RECHALLENGE_NO},
					{Name: "B", Dechallenge: domain.DECHALLENGE_YES, Rechallenge: domain.RECHALLENGE_NOT_RECHALLENGED},
				}
			},
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriTrue, cr.DechallengeImprovement)
				assert.Equal(t, domain.TriFalse, cr.RechallengePositive)
			},
		},
		{
			name: "not stopped is unknown",
			mutate: func(c *domain.Case) {
				c.SuspectedDrugs[0].Dechallenge = domain.DECHALLENGE_NOT_STOPPED
				c.SuspectedDrugs[0].Rechallenge = domain.RECHALLENGE_NOT_RECHALLENGED
			},
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriUnknown, cr.DechallengeImprovement)
				assert.Equal(t, domain.TriUnknown, cr.RechallengePositive)
			},
		},
		{
			name:   "unrecognised reaction is false, never unknown",
			mutate: func(c *domain.Case) { c.ReactionDescription = "Tăng men gan" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriFalse, cr.IsKnownReaction)
			},
		},
		{
			name:   "recognised reaction in upper case",
			mutate: func(c *domain.Case) { c.ReactionDescription = "BUỒN NÔN VÀ CHÓNG MẶT" },
			check: func(t *testing.T, cr domain.WHOCriteria) {
				assert.Equal(t, domain.TriTrue, cr.IsKnownReaction)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := minimalCase()
			tt.mutate(c)
			tt.check(t, analyzer.EvaluateCriteria(c))
		})
	}
}

func TestWHOUMCAnalyzer_DecisionRules(t *testing.T) {
	analyzer := NewWHOUMCAnalyzer(newTestLogger(), domain.DefaultKeywordSets())

	tests := []struct {
		name        string
		onset       string
		history     *string
		dechallenge domain.DechallengeOutcome
		rechallenge domain.RechallengeOutcome
		description string
		expected    domain.WHOLevel
	}{
		{"all five true", "1 giờ", strPtr(""), domain.DECHALLENGE_YES, domain.RECHALLENGE_YES, "ngứa", domain.WHO_CERTAIN},
		{"temporal and dechallenge, history unknown", "1 giờ", nil, domain.DECHALLENGE_YES, domain.RECHALLENGE_NO_INFORMATION, "sốt", domain.WHO_PROBABLE},
		{"temporal and dechallenge, negative rechallenge", "1 day", strPtr(""), domain.DECHALLENGE_YES, domain.RECHALLENGE_NO, "fever", domain.WHO_PROBABLE},
		{"alternative cause blocks probable", "1 giờ", strPtr("virus"), domain.DECHALLENGE_YES, domain.RECHALLENGE_YES, "ngứa", domain.WHO_POSSIBLE},
		{"temporal with unknown dechallenge", "1 giờ", strPtr(""), domain.DECHALLENGE_NO_INFORMATION, domain.RECHALLENGE_NO_INFORMATION, "ngứa", domain.WHO_POSSIBLE},
		{"long latency", "2 năm", strPtr(""), domain.DECHALLENGE_YES, domain.RECHALLENGE_YES, "ngứa", domain.WHO_UNLIKELY},
		{"temporal with negative dechallenge", "1 giờ", strPtr(""), domain.DECHALLENGE_NO, domain.RECHALLENGE_NO_INFORMATION, "ngứa", domain.WHO_UNCLASSIFIED},
		{"no onset", "", strPtr(""), domain.DECHALLENGE_YES, domain.RECHALLENGE_YES, "ngứa", domain.WHO_UNCLASSIFIED},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := minimalCase()
			c.ReactionOnsetTime = tt.onset
			c.MedicalHistory = tt.history
			c.ReactionDescription = tt.description
			c.SuspectedDrugs[0].Dechallenge = tt.dechallenge
			c.SuspectedDrugs[0].Rechallenge = tt.rechallenge

			result := analyzer.Analyze(c)
			assert.Equal(t, tt.expected, result.SuggestedLevel)
			assert.NotEmpty(t, result.Explanation)
		})
	}
}

func TestWHOUMCAnalyzer_Unclassifiable(t *testing.T) {
	analyzer := NewWHOUMCAnalyzer(newTestLogger(), domain.DefaultKeywordSets())

	c := minimalCase()
	c.SuspectedDrugs = nil
	c.OccurrenceDate = domain.Date{}

	result := analyzer.Analyze(c)
	assert.Equal(t, domain.WHO_UNCLASSIFIABLE, result.SuggestedLevel)
	assert.Contains(t, result.Explanation, "occurrence date")
	assert.Contains(t, result.Explanation, "suspected drug")
}

func TestWHOUMCAnalyzer_CustomKeywords(t *testing.T) {
	keywords := domain.DefaultKeywordSets()
	keywords.KnownReaction = []string{"urticaria"}

	analyzer := NewWHOUMCAnalyzer(newTestLogger(), keywords)

	c := minimalCase()
	c.ReactionDescription = "Acute URTICARIA"
	assert.Equal(t, domain.TriTrue, analyzer.EvaluateCriteria(c).IsKnownReaction)

	c.ReactionDescription = "rash"
	assert.Equal(t, domain.TriFalse, analyzer.EvaluateCriteria(c).IsKnownReaction)
}
