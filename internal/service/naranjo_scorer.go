package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
)

// Naranjo questionnaire wording, question 1 through 10.
var naranjoQuestions = [domain.NaranjoQuestionCount]string{
	"Are there previous conclusive reports on this reaction?",
	"Did the adverse event appear after the suspected drug was administered?",
	"Did the adverse reaction improve when the drug was discontinued or a specific antagonist was administered?",
	"Did the adverse reaction reappear when the drug was re-administered?",
	"Are there alternative causes that could on their own have caused the reaction?",
	"Did the reaction reappear when a placebo was given?",
	"Was the drug detected in blood or other fluids in concentrations known to be toxic?",
	"Was the reaction more severe when the dose was increased or less severe when the dose was decreased?",
	"Did the patient have a similar reaction to the same or similar drugs in any previous exposure?",
	"Was the adverse event confirmed by any objective evidence?",
}

// naranjoQuestion scores one question from the case and its derived criteria.
type naranjoQuestion func(c *domain.Case, f criteriaFindings, vocab *caseVocabulary) (score int, justification string, basis domain.EvidenceBasis)

// NaranjoScorer evaluates the ten-question Naranjo algorithm.
type NaranjoScorer struct {
	logger    *logrus.Logger
	vocab     *caseVocabulary
	questions [domain.NaranjoQuestionCount]naranjoQuestion
}

// NewNaranjoScorer creates a new Naranjo scorer
func NewNaranjoScorer(logger *logrus.Logger, keywords domain.KeywordSets) *NaranjoScorer {
	return &NaranjoScorer{
		logger: logger,
		vocab:  newCaseVocabulary(keywords),
		questions: [domain.NaranjoQuestionCount]naranjoQuestion{
			scorePreviousReports,
			scoreTemporalSequence,
			scoreDechallenge,
			scoreRechallenge,
			scoreAlternativeCauses,
			scorePlacebo,
			scoreToxicConcentration,
			scoreDoseResponse,
			scorePriorReaction,
			scoreObjectiveEvidence,
		},
	}
}

// Score answers all ten questions and maps the total onto the ordinal scale.
func (s *NaranjoScorer) Score(c *domain.Case) domain.NaranjoAssessment {
	findings := evaluateCriteria(c, s.vocab)

	var result domain.NaranjoAssessment
	for i, question := range s.questions {
		score, justification, basis := question(c, findings, s.vocab)
		result.QuestionScores[i] = domain.NaranjoQuestionResult{
			Number:        i + 1,
			Question:      naranjoQuestions[i],
			Score:         score,
			Justification: justification,
			EvidenceBasis: basis,
		}
		result.TotalScore += score
	}

	result.SuggestedLevel = NaranjoLevel(result.TotalScore)
	result.Explanation = naranjoExplanation(result.TotalScore, result.SuggestedLevel)

	s.logger.WithFields(logrus.Fields{
		"report_code":   c.ReportCode,
		"total_score":   result.TotalScore,
		"naranjo_level": result.SuggestedLevel.String(),
	}).Debug("Completed Naranjo scoring")

	return result
}

// NaranjoLevel maps a total score onto the fixed Naranjo categories:
// >=9 certain, 5-8 probable, 1-4 possible, <=0 unlikely.
func NaranjoLevel(total int) domain.CausalityLevel {
	switch {
	case total >= 9:
		return domain.CERTAIN
	case total >= 5:
		return domain.PROBABLE
	case total >= 1:
		return domain.POSSIBLE
	default:
		return domain.UNLIKELY
	}
}

func naranjoExplanation(total int, level domain.CausalityLevel) string {
	var meaning string
	switch level {
	case domain.CERTAIN:
		meaning = "a definite adverse drug reaction (score 9 or higher)"
	case domain.PROBABLE:
		meaning = "a probable adverse drug reaction (score 5 to 8)"
	case domain.POSSIBLE:
		meaning = "a possible adverse drug reaction (score 1 to 4)"
	default:
		meaning = "a doubtful adverse drug reaction (score 0 or lower)"
	}
	return fmt.Sprintf("Naranjo total score %d indicates %s.", total, meaning)
}

func scorePreviousReports(*domain.Case, criteriaFindings, *caseVocabulary) (int, string, domain.EvidenceBasis) {
	return 0, "No literature database is consulted; scored as unknown.", domain.BASIS_ASSUMPTION
}

func scoreTemporalSequence(_ *domain.Case, f criteriaFindings, _ *caseVocabulary) (int, string, domain.EvidenceBasis) {
	switch f.criteria.TemporalRelationship {
	case domain.TriTrue:
		return 2, fmt.Sprintf("Onset time indicates a short latency (%s).", f.onsetTerm), domain.BASIS_DATA
	case domain.TriFalse:
		return -1, fmt.Sprintf("Onset time indicates a long latency (%s).", f.onsetTerm), domain.BASIS_DATA
	}
	if f.onsetProvided {
		return 0, "Onset time could not be interpreted.", domain.BASIS_MISSING
	}
	return 0, "Onset time was not reported.", domain.BASIS_MISSING
}

func scoreDechallenge(_ *domain.Case, f criteriaFindings, _ *caseVocabulary) (int, string, domain.EvidenceBasis) {
	switch f.criteria.DechallengeImprovement {
	case domain.TriTrue:
		return 1, "The reaction improved after a suspected drug was stopped or reduced.", domain.BASIS_DATA
	case domain.TriFalse:
		return 0, "The reaction did not improve after the suspected drug was stopped.", domain.BASIS_DATA
	}
	return 0, "No informative dechallenge was reported.", domain.BASIS_MISSING
}

func scoreRechallenge(_ *domain.Case, f criteriaFindings, _ *caseVocabulary) (int, string, domain.EvidenceBasis) {
	switch f.criteria.RechallengePositive {
	case domain.TriTrue:
		return 2, "The reaction recurred when a suspected drug was re-administered.", domain.BASIS_DATA
	case domain.TriFalse:
		return -1, "The reaction did not recur on re-administration.", domain.BASIS_DATA
	}
	return 0, "No informative rechallenge was reported.", domain.BASIS_MISSING
}

func scoreAlternativeCauses(_ *domain.Case, f criteriaFindings, _ *caseVocabulary) (int, string, domain.EvidenceBasis) {
	switch f.criteria.NoAlternativeCause {
	case domain.TriFalse:
		return -1, fmt.Sprintf("Medical history mentions a possible alternative cause (%s).", f.alternativeTerm), domain.BASIS_DATA
	case domain.TriTrue:
		return 2, "Medical history mentions no alternative cause.", domain.BASIS_DATA
	}
	return 0, "Medical history was not reported.", domain.BASIS_MISSING
}

func scorePlacebo(*domain.Case, criteriaFindings, *caseVocabulary) (int, string, domain.EvidenceBasis) {
	return 0, "Placebo response is not collected.", domain.BASIS_MISSING
}

func scoreToxicConcentration(*domain.Case, criteriaFindings, *caseVocabulary) (int, string, domain.EvidenceBasis) {
	return 0, "Drug concentration measurements are not collected.", domain.BASIS_MISSING
}

func scoreDoseResponse(*domain.Case, criteriaFindings, *caseVocabulary) (int, string, domain.EvidenceBasis) {
	return 0, "Dose-response information is not collected.", domain.BASIS_MISSING
}

func scorePriorReaction(c *domain.Case, _ criteriaFindings, vocab *caseVocabulary) (int, string, domain.EvidenceBasis) {
	if c.MedicalHistory != nil {
		if term, ok := vocab.allergyHistory.Match(NormalizeText(*c.MedicalHistory)); ok {
			return 1, fmt.Sprintf("Medical history mentions a prior similar reaction (%s).", term), domain.BASIS_DATA
		}
	}
	return 0, "No prior similar reaction is recorded.", domain.BASIS_MISSING
}

func scoreObjectiveEvidence(c *domain.Case, _ criteriaFindings, _ *caseVocabulary) (int, string, domain.EvidenceBasis) {
	if c.HasRelatedTests() {
		return 1, "Related test results are reported.", domain.BASIS_DATA
	}
	return 0, "No related test results are reported.", domain.BASIS_MISSING
}
