package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
)

// EngineVersion identifies the rule set; it is part of every cache key and audit record.
const EngineVersion = "1.2.0"

// EngineFeatures lists what the engine computes.
var EngineFeatures = []string{
	"who_umc_causality",
	"naranjo_scoring",
	"weighted_recommendation",
	"confidence_estimation",
	"reasoning_and_warnings",
}

var _ domain.CausalityAssessor = (*CausalityEngine)(nil)

// CausalityEngine validates a case and runs the WHO-UMC analysis, Naranjo scoring,
// blending, confidence estimation and rationale generation. It holds no per-call
// state and is safe for concurrent use.
type CausalityEngine struct {
	logger   *logrus.Logger
	policy   domain.CausalityPolicy
	keywords domain.KeywordSets
	checksum string
	who      *WHOUMCAnalyzer
	naranjo  *NaranjoScorer
}

// NewCausalityEngine creates a new causality engine
func NewCausalityEngine(logger *logrus.Logger, keywords domain.KeywordSets, policy domain.CausalityPolicy) (*CausalityEngine, error) {
	if err := keywords.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create causality engine: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create causality engine: %w", err)
	}

	return &CausalityEngine{
		logger:   logger,
		policy:   policy,
		keywords: keywords,
		checksum: KeywordsChecksum(keywords),
		who:      NewWHOUMCAnalyzer(logger, keywords),
		naranjo:  NewNaranjoScorer(logger, keywords),
	}, nil
}

// AssessCausality produces an advisory suggestion for one case.
// Validation failures return a *domain.ValidationError and nothing is computed.
func (e *CausalityEngine) AssessCausality(c *domain.Case) (*domain.AssessmentSuggestion, error) {
	if err := c.Validate(); err != nil {
		e.logger.WithError(err).WithField("report_code", reportCodeOf(c)).Debug("Rejected invalid case")
		return nil, err
	}

	who := e.who.Analyze(c)
	naranjo := e.naranjo.Score(c)

	overall, err := BlendRecommendation(who.SuggestedLevel, naranjo.SuggestedLevel, e.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to blend recommendation: %w", err)
	}

	confidence, err := EstimateConfidence(c, who, naranjo, e.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate confidence: %w", err)
	}

	suggestion := &domain.AssessmentSuggestion{
		WHOResult:             who,
		NaranjoResult:         naranjo,
		OverallRecommendation: overall,
		Confidence:            confidence,
		Reasoning:             BuildReasoning(c, who, naranjo),
		Warnings:              BuildWarnings(c),
	}

	e.logger.WithFields(logrus.Fields(suggestion.LogFields())).
		WithField("report_code", c.ReportCode).
		Info("Completed causality assessment")

	return suggestion, nil
}

// Policy returns the weighting in effect.
func (e *CausalityEngine) Policy() domain.CausalityPolicy {
	return e.policy
}

// Status describes the engine configuration.
func (e *CausalityEngine) Status() domain.EngineStatus {
	return domain.EngineStatus{
		EngineVersion:    EngineVersion,
		Features:         append([]string(nil), EngineFeatures...),
		Policy:           e.policy,
		KeywordCounts:    e.keywords.Counts(),
		KeywordsChecksum: e.checksum,
	}
}

// Fingerprint identifies the engine configuration for cache keys.
func (e *CausalityEngine) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s", EngineVersion, e.checksum[:16], policyFingerprint(e.policy))
}

func policyFingerprint(p domain.CausalityPolicy) string {
	return fmt.Sprintf("%.3f/%.3f/%d/%d/%d/%d/%d/%d/%d/%d/%d/%d/%d/%d/%d/%d",
		p.WHOWeight, p.NaranjoWeight, p.ConfidenceBase, p.ConfidenceCeiling,
		p.OnsetTimeBonus, p.RelatedTestsBonus, p.MedicalHistoryBonus, p.TreatmentResponseBonus,
		p.AgreementBonus, p.DrugStartDateBonus, p.DrugEndDateBonus, p.DrugDosageBonus,
		p.DrugDechallengeBonus, p.DrugRechallengeBonus, p.DrugQualityCap, p.NoDrugPenalty)
}

func reportCodeOf(c *domain.Case) string {
	if c == nil {
		return ""
	}
	return c.ReportCode
}
