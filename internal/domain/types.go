// Package domain contains core business entities and types for adverse drug reaction (ADR)
// causality assessment following the WHO-UMC system and the Naranjo algorithm.
//
// References:
// WHO-UMC (2013) The use of the WHO-UMC system for standardised case causality assessment.
// Naranjo CA et al. (1981) A method for estimating the probability of adverse drug reactions.
// Clin Pharmacol Ther. 30(2):239-45. doi: 10.1038/clpt.1981.154
package domain

import (
	"errors"
	"fmt"
)

// CausalityLevel is the shared four-level ordinal causality scale used by both
// WHO-UMC and Naranjo. The ordinal order is UNLIKELY < POSSIBLE < PROBABLE < CERTAIN.
type CausalityLevel string

const (
	UNLIKELY CausalityLevel = "unlikely"
	POSSIBLE CausalityLevel = "possible"
	PROBABLE CausalityLevel = "probable"
	CERTAIN  CausalityLevel = "certain"
)

// WHOLevel is a WHO-UMC causality category. It extends the ordinal scale with
// two administrative categories that carry no ordinal position.
type WHOLevel string

const (
	WHO_CERTAIN        WHOLevel = "certain"
	WHO_PROBABLE       WHOLevel = "probable"
	WHO_POSSIBLE       WHOLevel = "possible"
	WHO_UNLIKELY       WHOLevel = "unlikely"
	WHO_UNCLASSIFIED   WHOLevel = "unclassified"
	WHO_UNCLASSIFIABLE WHOLevel = "unclassifiable"
)

// SeverityLevel describes the seriousness of the reaction.
type SeverityLevel string

const (
	DEATH                SeverityLevel = "death"
	LIFE_THREATENING     SeverityLevel = "life_threatening"
	HOSPITALIZATION      SeverityLevel = "hospitalization"
	BIRTH_DEFECT         SeverityLevel = "birth_defect"
	PERMANENT_DISABILITY SeverityLevel = "permanent_disability"
	NOT_SERIOUS          SeverityLevel = "not_serious"
)

// DechallengeOutcome records what happened after the drug was stopped or the dose reduced.
type DechallengeOutcome string

const (
	DECHALLENGE_YES            DechallengeOutcome = "yes"
	DECHALLENGE_NO             DechallengeOutcome = "no"
	DECHALLENGE_NOT_STOPPED    DechallengeOutcome = "not_stopped"
	DECHALLENGE_NO_INFORMATION DechallengeOutcome = "no_information"
)

// RechallengeOutcome records what happened when the drug was re-administered.
type RechallengeOutcome string

const (
	RECHALLENGE_YES              RechallengeOutcome = "yes"
	RECHALLENGE_NO               RechallengeOutcome = "no"
	RECHALLENGE_NOT_RECHALLENGED RechallengeOutcome = "not_rechallenged"
	RECHALLENGE_NO_INFORMATION   RechallengeOutcome = "no_information"
)

// EvidenceBasis tags how a Naranjo answer was derived.
type EvidenceBasis string

const (
	BASIS_DATA       EvidenceBasis = "data"
	BASIS_ASSUMPTION EvidenceBasis = "assumption"
	BASIS_MISSING    EvidenceBasis = "missing"
)

// AssessmentScale is the scale a reviewer records the final causality on.
type AssessmentScale string

const (
	SCALE_WHO     AssessmentScale = "who"
	SCALE_NARANJO AssessmentScale = "naranjo"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidCausalityLevel = errors.New("invalid causality level")
	ErrInvalidWHOLevel       = errors.New("invalid WHO-UMC category")
	ErrInvalidSeverity       = errors.New("invalid severity level")
	ErrInvalidDechallenge    = errors.New("invalid dechallenge outcome")
	ErrInvalidRechallenge    = errors.New("invalid rechallenge outcome")
	ErrInvalidScale          = errors.New("invalid assessment scale")
)

// causalityOrder lists the ordinal scale from lowest to highest.
var causalityOrder = [...]CausalityLevel{UNLIKELY, POSSIBLE, PROBABLE, CERTAIN}

// IsValid reports whether the level belongs to the ordinal scale.
func (c CausalityLevel) IsValid() bool {
	switch c {
	case UNLIKELY, POSSIBLE, PROBABLE, CERTAIN:
		return true
	default:
		return false
	}
}

func (c CausalityLevel) String() string {
	return string(c)
}

// Index returns the ordinal position of the level (UNLIKELY=0 ... CERTAIN=3).
func (c CausalityLevel) Index() (int, error) {
	for i, level := range causalityOrder {
		if level == c {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCausalityLevel, string(c))
}

// CausalityLevelAt returns the level at the given ordinal position.
func CausalityLevelAt(index int) (CausalityLevel, error) {
	if index < 0 || index >= len(causalityOrder) {
		return "", fmt.Errorf("%w: ordinal index %d out of range", ErrInvalidCausalityLevel, index)
	}
	return causalityOrder[index], nil
}

// LogFields returns structured logging fields for audit trails.
func (c CausalityLevel) LogFields() map[string]any {
	idx, err := c.Index()
	return map[string]any{
		"causality_level": string(c),
		"ordinal_index":   idx,
		"is_valid":        err == nil,
	}
}

// IsValid reports whether the category is one of the six WHO-UMC categories.
func (w WHOLevel) IsValid() bool {
	switch w {
	case WHO_CERTAIN, WHO_PROBABLE, WHO_POSSIBLE, WHO_UNLIKELY, WHO_UNCLASSIFIED, WHO_UNCLASSIFIABLE:
		return true
	default:
		return false
	}
}

func (w WHOLevel) String() string {
	return string(w)
}

// IsAdministrative reports whether the category sits outside the ordinal scale.
func (w WHOLevel) IsAdministrative() bool {
	return w == WHO_UNCLASSIFIED || w == WHO_UNCLASSIFIABLE
}

// Ordinal maps the WHO-UMC category onto the shared four-level scale.
// Administrative categories map to UNLIKELY: a case that cannot be classified
// offers no support for a causal link.
func (w WHOLevel) Ordinal() (CausalityLevel, error) {
	switch w {
	case WHO_CERTAIN:
		return CERTAIN, nil
	case WHO_PROBABLE:
		return PROBABLE, nil
	case WHO_POSSIBLE:
		return POSSIBLE, nil
	case WHO_UNLIKELY, WHO_UNCLASSIFIED, WHO_UNCLASSIFIABLE:
		return UNLIKELY, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWHOLevel, string(w))
	}
}

// IsValid reports whether the severity level is known.
func (s SeverityLevel) IsValid() bool {
	switch s {
	case DEATH, LIFE_THREATENING, HOSPITALIZATION, BIRTH_DEFECT, PERMANENT_DISABILITY, NOT_SERIOUS:
		return true
	default:
		return false
	}
}

func (s SeverityLevel) String() string {
	return string(s)
}

// IsSerious reports whether the reaction meets any seriousness criterion.
func (s SeverityLevel) IsSerious() bool {
	return s.IsValid() && s != NOT_SERIOUS
}

// Description returns a human-readable label for reports.
func (s SeverityLevel) Description() string {
	switch s {
	case DEATH:
		return "death"
	case LIFE_THREATENING:
		return "life-threatening"
	case HOSPITALIZATION:
		return "hospitalization or prolonged hospitalization"
	case BIRTH_DEFECT:
		return "congenital anomaly or birth defect"
	case PERMANENT_DISABILITY:
		return "permanent or significant disability"
	case NOT_SERIOUS:
		return "not serious"
	default:
		return "unknown severity"
	}
}

func (d DechallengeOutcome) IsValid() bool {
	switch d {
	case DECHALLENGE_YES, DECHALLENGE_NO, DECHALLENGE_NOT_STOPPED, DECHALLENGE_NO_INFORMATION:
		return true
	default:
		return false
	}
}

// IsInformative reports whether the outcome carries information about the case.
// DECHALLENGE_NOT_STOPPED counts: it is a recorded fact, not a gap.
func (d DechallengeOutcome) IsInformative() bool {
	return d.IsValid() && d != DECHALLENGE_NO_INFORMATION
}

func (r RechallengeOutcome) IsValid() bool {
	switch r {
	case RECHALLENGE_YES, RECHALLENGE_NO, RECHALLENGE_NOT_RECHALLENGED, RECHALLENGE_NO_INFORMATION:
		return true
	default:
		return false
	}
}

// IsInformative reports whether the outcome carries information about the case.
func (r RechallengeOutcome) IsInformative() bool {
	return r.IsValid() && r != RECHALLENGE_NO_INFORMATION
}

func (b EvidenceBasis) IsValid() bool {
	switch b {
	case BASIS_DATA, BASIS_ASSUMPTION, BASIS_MISSING:
		return true
	default:
		return false
	}
}

func (s AssessmentScale) IsValid() bool {
	return s == SCALE_WHO || s == SCALE_NARANJO
}

// ParseSeverity converts a wire value into a SeverityLevel.
func ParseSeverity(value string) (SeverityLevel, error) {
	s := SeverityLevel(value)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, value)
	}
	return s, nil
}

func ParseDechallengeOutcome(value string) (DechallengeOutcome, error) {
	d := DechallengeOutcome(value)
	if !d.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDechallenge, value)
	}
	return d, nil
}

func ParseRechallengeOutcome(value string) (RechallengeOutcome, error) {
	r := RechallengeOutcome(value)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRechallenge, value)
	}
	return r, nil
}

// ParseWHOLevel converts a wire value into one of the six WHO-UMC categories.
func ParseWHOLevel(value string) (WHOLevel, error) {
	w := WHOLevel(value)
	if !w.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidWHOLevel, value)
	}
	return w, nil
}

func ParseAssessmentScale(value string) (AssessmentScale, error) {
	s := AssessmentScale(value)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScale, value)
	}
	return s, nil
}
