package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidPolicy   = errors.New("invalid causality policy")
	ErrInvalidKeywords = errors.New("invalid keyword sets")
)

// KeywordSets are the heuristic vocabularies used to read free-text case fields.
// They are data, not code: deployments load them from YAML and may localise them.
type KeywordSets struct {
	// ShortLatency terms mark an onset measured in minutes, hours or days.
	ShortLatency []string `yaml:"short_latency" mapstructure:"short_latency" json:"short_latency"`
	// LongLatency terms mark an onset measured in months or years.
	LongLatency      []string `yaml:"long_latency" mapstructure:"long_latency" json:"long_latency"`
	AlternativeCause []string `yaml:"alternative_cause" mapstructure:"alternative_cause" json:"alternative_cause"`
	KnownReaction    []string `yaml:"known_reaction" mapstructure:"known_reaction" json:"known_reaction"`
	AllergyHistory   []string `yaml:"allergy_history" mapstructure:"allergy_history" json:"allergy_history"`
}

// DefaultKeywordSets returns the built-in Vietnamese and English vocabularies.
func DefaultKeywordSets() KeywordSets {
	return KeywordSets{
		ShortLatency: []string{
			"phút", "giờ", "ngày",
			"minute", "hour", "day",
		},
		LongLatency: []string{
			"tháng", "năm",
			"month", "year",
		},
		AlternativeCause: []string{
			"bệnh nền", "bệnh mãn tính", "nhiễm trùng", "virus", "vi khuẩn",
			"dị ứng có sẵn", "tiền sử dị ứng", "bệnh tự miễn",
			"chronic", "infection", "bacterial", "autoimmune", "pre-existing allergy", "allergy history",
		},
		KnownReaction: []string{
			"ngứa", "phát ban", "nôn", "buồn nôn", "đau đầu", "chóng mặt",
			"rash", "itching", "vomiting", "nausea", "headache", "dizziness",
		},
		AllergyHistory: []string{
			"tiền sử dị ứng",
			"history of allergy", "allergy history",
		},
	}
}

// Counts returns the number of terms per set, keyed by YAML name.
func (k KeywordSets) Counts() map[string]int {
	return map[string]int{
		"short_latency":     len(k.ShortLatency),
		"long_latency":      len(k.LongLatency),
		"alternative_cause": len(k.AlternativeCause),
		"known_reaction":    len(k.KnownReaction),
		"allergy_history":   len(k.AllergyHistory),
	}
}

// Validate requires every set to contain at least one non-blank term.
func (k KeywordSets) Validate() error {
	for name, terms := range map[string][]string{
		"short_latency":     k.ShortLatency,
		"long_latency":      k.LongLatency,
		"alternative_cause": k.AlternativeCause,
		"known_reaction":    k.KnownReaction,
		"allergy_history":   k.AllergyHistory,
	} {
		nonBlank := 0
		for _, term := range terms {
			if strings.TrimSpace(term) != "" {
				nonBlank++
			}
		}
		if nonBlank == 0 {
			return fmt.Errorf("%w: %s has no terms", ErrInvalidKeywords, name)
		}
	}
	return nil
}

// CausalityPolicy holds the tunable weights and bonuses of the engine.
// The ordinal thresholds of the Naranjo scale are fixed and not part of the policy.
type CausalityPolicy struct {
	WHOWeight     float64 `yaml:"who_weight" mapstructure:"who_weight" json:"who_weight"`
	NaranjoWeight float64 `yaml:"naranjo_weight" mapstructure:"naranjo_weight" json:"naranjo_weight"`

	ConfidenceBase    int `yaml:"confidence_base" mapstructure:"confidence_base" json:"confidence_base"`
	ConfidenceCeiling int `yaml:"confidence_ceiling" mapstructure:"confidence_ceiling" json:"confidence_ceiling"`

	OnsetTimeBonus         int `yaml:"onset_time_bonus" mapstructure:"onset_time_bonus" json:"onset_time_bonus"`
	RelatedTestsBonus      int `yaml:"related_tests_bonus" mapstructure:"related_tests_bonus" json:"related_tests_bonus"`
	MedicalHistoryBonus    int `yaml:"medical_history_bonus" mapstructure:"medical_history_bonus" json:"medical_history_bonus"`
	TreatmentResponseBonus int `yaml:"treatment_response_bonus" mapstructure:"treatment_response_bonus" json:"treatment_response_bonus"`
	AgreementBonus         int `yaml:"agreement_bonus" mapstructure:"agreement_bonus" json:"agreement_bonus"`

	DrugStartDateBonus   int `yaml:"drug_start_date_bonus" mapstructure:"drug_start_date_bonus" json:"drug_start_date_bonus"`
	DrugEndDateBonus     int `yaml:"drug_end_date_bonus" mapstructure:"drug_end_date_bonus" json:"drug_end_date_bonus"`
	DrugDosageBonus      int `yaml:"drug_dosage_bonus" mapstructure:"drug_dosage_bonus" json:"drug_dosage_bonus"`
	DrugDechallengeBonus int `yaml:"drug_dechallenge_bonus" mapstructure:"drug_dechallenge_bonus" json:"drug_dechallenge_bonus"`
	DrugRechallengeBonus int `yaml:"drug_rechallenge_bonus" mapstructure:"drug_rechallenge_bonus" json:"drug_rechallenge_bonus"`
	DrugQualityCap       int `yaml:"drug_quality_cap" mapstructure:"drug_quality_cap" json:"drug_quality_cap"`
	NoDrugPenalty        int `yaml:"no_drug_penalty" mapstructure:"no_drug_penalty" json:"no_drug_penalty"`
}

// MaxConfidenceCeiling is the hard upper bound on any confidence value.
const MaxConfidenceCeiling = 95

// DefaultCausalityPolicy returns the standard weighting.
func DefaultCausalityPolicy() CausalityPolicy {
	return CausalityPolicy{
		WHOWeight:              0.6,
		NaranjoWeight:          0.4,
		ConfidenceBase:         50,
		ConfidenceCeiling:      MaxConfidenceCeiling,
		OnsetTimeBonus:         10,
		RelatedTestsBonus:      10,
		MedicalHistoryBonus:    5,
		TreatmentResponseBonus: 5,
		AgreementBonus:         15,
		DrugStartDateBonus:     3,
		DrugEndDateBonus:       3,
		DrugDosageBonus:        2,
		DrugDechallengeBonus:   2,
		DrugRechallengeBonus:   2,
		DrugQualityCap:         20,
		NoDrugPenalty:          -20,
	}
}

// Validate checks the weights sum to one and the bounds are coherent.
func (p CausalityPolicy) Validate() error {
	if p.WHOWeight < 0 || p.NaranjoWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidPolicy)
	}
	if math.Abs(p.WHOWeight+p.NaranjoWeight-1) > 1e-9 {
		return fmt.Errorf("%w: weights must sum to 1, got %.4f", ErrInvalidPolicy, p.WHOWeight+p.NaranjoWeight)
	}
	if p.ConfidenceCeiling < 0 || p.ConfidenceCeiling > MaxConfidenceCeiling {
		return fmt.Errorf("%w: confidence ceiling must be within [0, %d]", ErrInvalidPolicy, MaxConfidenceCeiling)
	}
	if p.DrugQualityCap < 0 {
		return fmt.Errorf("%w: drug quality cap must be non-negative", ErrInvalidPolicy)
	}
	if p.NoDrugPenalty > 0 {
		return fmt.Errorf("%w: no-drug penalty must not be positive", ErrInvalidPolicy)
	}
	return nil
}
