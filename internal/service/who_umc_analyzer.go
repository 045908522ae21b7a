package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
)

// WHOUMCAnalyzer maps a case onto one of the six WHO-UMC causality categories.
type WHOUMCAnalyzer struct {
	logger *logrus.Logger
	vocab  *caseVocabulary
}

// NewWHOUMCAnalyzer creates a new WHO-UMC analyzer
func NewWHOUMCAnalyzer(logger *logrus.Logger, keywords domain.KeywordSets) *WHOUMCAnalyzer {
	return &WHOUMCAnalyzer{
		logger: logger,
		vocab:  newCaseVocabulary(keywords),
	}
}

// EvaluateCriteria derives the five WHO-UMC criteria without deciding a category.
func (a *WHOUMCAnalyzer) EvaluateCriteria(c *domain.Case) domain.WHOCriteria {
	return evaluateCriteria(c, a.vocab).criteria
}

// Analyze evaluates the criteria and applies the WHO-UMC decision rules in priority order.
func (a *WHOUMCAnalyzer) Analyze(c *domain.Case) domain.WHOAssessment {
	findings := evaluateCriteria(c, a.vocab)
	level, explanation := decideWHOLevel(c, findings)

	a.logger.WithFields(logrus.Fields{
		"report_code":             c.ReportCode,
		"who_level":               level.String(),
		"temporal_relationship":   findings.criteria.TemporalRelationship.String(),
		"no_alternative_cause":    findings.criteria.NoAlternativeCause.String(),
		"dechallenge_improvement": findings.criteria.DechallengeImprovement.String(),
		"is_known_reaction":       findings.criteria.IsKnownReaction.String(),
		"rechallenge_positive":    findings.criteria.RechallengePositive.String(),
	}).Debug("Completed WHO-UMC analysis")

	return domain.WHOAssessment{
		SuggestedLevel:   level,
		CriteriaAnalysis: findings.criteria,
		Explanation:      explanation,
	}
}

func decideWHOLevel(c *domain.Case, f criteriaFindings) (domain.WHOLevel, string) {
	cr := f.criteria

	switch {
	case cr.AllTrue():
		return domain.WHO_CERTAIN,
			"WHO-UMC certain: plausible time relationship, no alternative cause, positive dechallenge, " +
				"recognised reaction pattern and positive rechallenge are all established."

	case cr.TemporalRelationship.IsTrue() && cr.DechallengeImprovement.IsTrue() && !cr.NoAlternativeCause.IsFalse():
		return domain.WHO_PROBABLE,
			"WHO-UMC probable: reasonable time relationship and clinically reasonable response to withdrawal, " +
				"with no competing cause identified; rechallenge is not required."

	case cr.TemporalRelationship.IsTrue() && (cr.NoAlternativeCause.IsFalse() || cr.DechallengeImprovement.IsUnknown()):
		if cr.NoAlternativeCause.IsFalse() {
			return domain.WHO_POSSIBLE,
				"WHO-UMC possible: reasonable time relationship, but the medical history suggests an alternative cause (" +
					f.alternativeTerm + ")."
		}
		return domain.WHO_POSSIBLE,
			"WHO-UMC possible: reasonable time relationship, but information on drug withdrawal is lacking or unclear."

	case cr.TemporalRelationship.IsFalse():
		return domain.WHO_UNLIKELY,
			"WHO-UMC unlikely: the time from drug intake to reaction onset (" + f.onsetTerm +
				") makes a causal relationship improbable."
	}

	if missing := missingMinimumFields(c); len(missing) > 0 {
		return domain.WHO_UNCLASSIFIABLE,
			"WHO-UMC unclassifiable: the report lacks the minimum data needed for assessment (" +
				strings.Join(missing, ", ") + ")."
	}

	return domain.WHO_UNCLASSIFIED,
		"WHO-UMC unclassified: the time relationship or response to withdrawal could not be established; " +
			"more data is needed for a proper assessment."
}

// missingMinimumFields lists the required fields absent from the case.
// Validated cases never reach this with missing fields; the analyzer is also usable on its own.
func missingMinimumFields(c *domain.Case) []string {
	var missing []string
	if strings.TrimSpace(c.ReactionDescription) == "" {
		missing = append(missing, "reaction description")
	}
	if c.OccurrenceDate.IsZero() {
		missing = append(missing, "occurrence date")
	}
	if len(c.SuspectedDrugs) == 0 {
		missing = append(missing, "suspected drug")
	}
	return missing
}
