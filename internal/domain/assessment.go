package domain

import (
	"time"

	"github.com/google/uuid"
)

// NaranjoQuestionCount is the fixed number of questions in the Naranjo questionnaire.
const NaranjoQuestionCount = 10

// WHOCriteria holds the five WHO-UMC findings derived from a case.
type WHOCriteria struct {
	TemporalRelationship   TriState `json:"temporal_relationship"`
	NoAlternativeCause     TriState `json:"no_alternative_cause"`
	DechallengeImprovement TriState `json:"dechallenge_improvement"`
	IsKnownReaction        TriState `json:"is_known_reaction"`
	RechallengePositive    TriState `json:"rechallenge_positive"`
}

// AllTrue reports whether every criterion is positively established.
func (c WHOCriteria) AllTrue() bool {
	return c.TemporalRelationship.IsTrue() &&
		c.NoAlternativeCause.IsTrue() &&
		c.DechallengeImprovement.IsTrue() &&
		c.IsKnownReaction.IsTrue() &&
		c.RechallengePositive.IsTrue()
}

// WHOAssessment is the WHO-UMC verdict for a case.
type WHOAssessment struct {
	SuggestedLevel   WHOLevel    `json:"suggested_level"`
	CriteriaAnalysis WHOCriteria `json:"criteria_analysis"`
	Explanation      string      `json:"explanation"`
}

// NaranjoQuestionResult is the scored answer to one Naranjo question.
type NaranjoQuestionResult struct {
	Number        int           `json:"number"`
	Question      string        `json:"question"`
	Score         int           `json:"score"`
	Justification string        `json:"justification"`
	EvidenceBasis EvidenceBasis `json:"evidence_basis"`
}

// NaranjoAssessment is the scored questionnaire for a case.
// QuestionScores is a fixed-size array ordered by question number.
type NaranjoAssessment struct {
	TotalScore     int                                         `json:"total_score"`
	SuggestedLevel CausalityLevel                              `json:"suggested_level"`
	QuestionScores [NaranjoQuestionCount]NaranjoQuestionResult `json:"question_scores"`
	Explanation    string                                      `json:"explanation"`
}

// AssessmentSuggestion is the combined advisory output of the engine.
// It is a suggestion for a qualified reviewer, never a final determination.
type AssessmentSuggestion struct {
	WHOResult             WHOAssessment     `json:"who_result"`
	NaranjoResult         NaranjoAssessment `json:"naranjo_result"`
	OverallRecommendation CausalityLevel    `json:"overall_recommendation"`
	Confidence            int               `json:"confidence"`
	Reasoning             []string          `json:"reasoning"`
	Warnings              []string          `json:"warnings"`
}

// LogFields returns structured logging fields for audit trails.
func (s *AssessmentSuggestion) LogFields() map[string]any {
	return map[string]any{
		"who_level":              string(s.WHOResult.SuggestedLevel),
		"naranjo_score":          s.NaranjoResult.TotalScore,
		"naranjo_level":          string(s.NaranjoResult.SuggestedLevel),
		"overall_recommendation": string(s.OverallRecommendation),
		"confidence":             s.Confidence,
		"warning_count":          len(s.Warnings),
	}
}

// AssessmentRecord is a persisted audit entry for one assessment run.
type AssessmentRecord struct {
	ID               uuid.UUID            `json:"id"`
	ReportCode       string               `json:"report_code,omitempty"`
	RequestID        string               `json:"request_id,omitempty"`
	Case             Case                 `json:"case"`
	Suggestion       AssessmentSuggestion `json:"suggestion"`
	EngineVersion    string               `json:"engine_version"`
	ProcessingTimeMs int                  `json:"processing_time_ms"`
	CreatedAt        time.Time            `json:"created_at"`
}

// EngineStatus describes the running engine configuration.
type EngineStatus struct {
	EngineVersion    string          `json:"engine_version"`
	Features         []string        `json:"features"`
	Policy           CausalityPolicy `json:"policy"`
	KeywordCounts    map[string]int  `json:"keyword_counts"`
	KeywordsChecksum string          `json:"keywords_checksum"`
	CacheBackend     string          `json:"cache_backend"`
	Persistence      bool            `json:"persistence"`
}
