package service

import (
	"github.com/adr-causality-server/internal/domain"
)

// criteriaFindings are the WHO-UMC criteria plus the keywords that decided them.
// The keywords feed explanations and Naranjo justifications.
type criteriaFindings struct {
	criteria        domain.WHOCriteria
	onsetTerm       string
	alternativeTerm string
	knownTerm       string
	historyProvided bool
	onsetProvided   bool
}

// evaluateCriteria derives the five tri-state criteria from a case.
// It is a pure function of the case and the vocabulary.
func evaluateCriteria(c *domain.Case, vocab *caseVocabulary) criteriaFindings {
	var f criteriaFindings

	f.onsetProvided = c.HasOnsetTime()
	if f.onsetProvided {
		onset := NormalizeText(c.ReactionOnsetTime)
		// Short latencies are checked first: "2 giờ sau 1 năm điều trị" is still an onset in hours.
		if term, ok := vocab.shortLatency.Match(onset); ok {
			f.criteria.TemporalRelationship = domain.TriTrue
			f.onsetTerm = term
		} else if term, ok := vocab.longLatency.Match(onset); ok {
			f.criteria.TemporalRelationship = domain.TriFalse
			f.onsetTerm = term
		}
	}

	if c.MedicalHistory != nil {
		f.historyProvided = true
		if term, ok := vocab.alternativeCause.Match(NormalizeText(*c.MedicalHistory)); ok {
			f.criteria.NoAlternativeCause = domain.TriFalse
			f.alternativeTerm = term
		} else {
			f.criteria.NoAlternativeCause = domain.TriTrue
		}
	}

	f.criteria.DechallengeImprovement = dechallengeFinding(c.SuspectedDrugs)
	f.criteria.RechallengePositive = rechallengeFinding(c.SuspectedDrugs)

	if term, ok := vocab.knownReaction.Match(NormalizeText(c.ReactionDescription)); ok {
		f.criteria.IsKnownReaction = domain.TriTrue
		f.knownTerm = term
	} else {
		f.criteria.IsKnownReaction = domain.TriFalse
	}

	return f
}

// dechallengeFinding is true if any drug improved on withdrawal, false if none
// did and at least one did not, and unknown otherwise.
func dechallengeFinding(drugs []domain.SuspectedDrug) domain.TriState {
	result := domain.TriUnknown
	for _, d := range drugs {
		switch d.Dechallenge {
		case domain.DECHALLENGE_YES:
			return domain.TriTrue
		case domain.DECHALLENGE_NO:
			result = domain.TriFalse
		}
	}
	return result
}

func rechallengeFinding(drugs []domain.SuspectedDrug) domain.TriState {
	result := domain.TriUnknown
	for _, d := range drugs {
		switch d.Rechallenge {
		case domain.RECHALLENGE_YES:
			return domain.TriTrue
		case domain.RECHALLENGE_NO:
			result = domain.TriFalse
		}
	}
	return result
}
