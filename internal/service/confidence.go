package service

import (
	"github.com/adr-causality-server/internal/domain"
)

// EstimateConfidence scores how much a reviewer can rely on the suggestion, from
// data completeness and agreement between the two methods. The result is clamped
// to [0, policy.ConfidenceCeiling] and never exceeds 95.
func EstimateConfidence(c *domain.Case, who domain.WHOAssessment, naranjo domain.NaranjoAssessment, policy domain.CausalityPolicy) (int, error) {
	confidence := policy.ConfidenceBase

	if c.HasOnsetTime() {
		confidence += policy.OnsetTimeBonus
	}
	if c.HasRelatedTests() {
		confidence += policy.RelatedTestsBonus
	}
	if c.HasMedicalHistory() {
		confidence += policy.MedicalHistoryBonus
	}
	if c.HasTreatmentResponse() {
		confidence += policy.TreatmentResponseBonus
	}

	confidence += drugDataQuality(c.SuspectedDrugs, policy)

	agree, err := levelsAgree(who.SuggestedLevel, naranjo.SuggestedLevel)
	if err != nil {
		return 0, err
	}
	if agree {
		confidence += policy.AgreementBonus
	}

	return clamp(confidence, 0, min(policy.ConfidenceCeiling, domain.MaxConfidenceCeiling)), nil
}

// drugDataQuality sums per-drug completeness credits, capped at policy.DrugQualityCap.
// An empty drug list yields policy.NoDrugPenalty.
func drugDataQuality(drugs []domain.SuspectedDrug, policy domain.CausalityPolicy) int {
	if len(drugs) == 0 {
		return policy.NoDrugPenalty
	}

	total := 0
	for _, d := range drugs {
		if d.StartDate != nil && !d.StartDate.IsZero() {
			total += policy.DrugStartDateBonus
		}
		if d.EndDate != nil && !d.EndDate.IsZero() {
			total += policy.DrugEndDateBonus
		}
		if d.HasDosage() {
			total += policy.DrugDosageBonus
		}
		if d.Dechallenge.IsInformative() {
			total += policy.DrugDechallengeBonus
		}
		if d.Rechallenge.IsInformative() {
			total += policy.DrugRechallengeBonus
		}
	}
	return min(total, policy.DrugQualityCap)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
