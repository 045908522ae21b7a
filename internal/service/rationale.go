package service

import (
	"fmt"
	"strings"

	"github.com/adr-causality-server/internal/domain"
)

// Data-quality and safety warnings attached to a suggestion.
const (
	WarningMissingOnsetTime = "Reaction onset time is missing; the temporal relationship cannot be assessed."
	WarningMissingTests     = "No related test results; objective confirmation of the reaction is lacking."
	WarningMissingChallenge = "Dechallenge and rechallenge information is missing for every suspected drug."
	WarningFatalCase        = "Fatal case: requires especially careful evaluation by an expert reviewer."
)

// BuildReasoning returns the ordered rationale: the WHO-UMC explanation and the
// Naranjo explanation verbatim, followed by case-specific notes.
func BuildReasoning(c *domain.Case, who domain.WHOAssessment, naranjo domain.NaranjoAssessment) []string {
	reasoning := []string{who.Explanation, naranjo.Explanation}

	if who.SuggestedLevel.IsAdministrative() {
		reasoning = append(reasoning,
			fmt.Sprintf("WHO-UMC category %q has no ordinal position and is blended as unlikely.", who.SuggestedLevel))
	}
	if c.HasOnsetTime() {
		reasoning = append(reasoning,
			fmt.Sprintf("Reaction onset: %s.", strings.TrimSpace(c.ReactionOnsetTime)))
	}
	if c.SeverityLevel.IsSerious() {
		reasoning = append(reasoning,
			fmt.Sprintf("Severity (%s) must be taken into account when weighing this assessment.", c.SeverityLevel.Description()))
	}
	return reasoning
}

// BuildWarnings returns the data-quality warnings and the mandatory fatal-case warning.
func BuildWarnings(c *domain.Case) []string {
	warnings := []string{}

	if !c.HasOnsetTime() {
		warnings = append(warnings, WarningMissingOnsetTime)
	}
	if !c.HasRelatedTests() {
		warnings = append(warnings, WarningMissingTests)
	}
	if len(c.SuspectedDrugs) > 0 && noChallengeInformation(c.SuspectedDrugs) {
		warnings = append(warnings, WarningMissingChallenge)
	}
	if c.SeverityLevel == domain.DEATH {
		warnings = append(warnings, WarningFatalCase)
	}
	return warnings
}

// noChallengeInformation reports whether every drug lacks both dechallenge and rechallenge data.
func noChallengeInformation(drugs []domain.SuspectedDrug) bool {
	for _, d := range drugs {
		if d.Dechallenge != domain.DECHALLENGE_NO_INFORMATION || d.Rechallenge != domain.RECHALLENGE_NO_INFORMATION {
			return false
		}
	}
	return true
}
