package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time-of-day component.
type Date struct {
	time.Time
}

// NewDate returns the calendar date in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date, also accepting full RFC 3339 timestamps.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected %s", value, DateLayout)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SuspectedDrug is one drug suspected of causing the reaction.
type SuspectedDrug struct {
	Name               string             `json:"name"`
	DosageAndFrequency string             `json:"dosage_and_frequency,omitempty"`
	StartDate          *Date              `json:"start_date,omitempty"`
	EndDate            *Date              `json:"end_date,omitempty"`
	Dechallenge        DechallengeOutcome `json:"reaction_improved_after_stopping"`
	Rechallenge        RechallengeOutcome `json:"reaction_reoccurred_after_rechallenge"`
}

// HasDosage reports whether a dosage and frequency was recorded.
func (d SuspectedDrug) HasDosage() bool {
	return strings.TrimSpace(d.DosageAndFrequency) != ""
}

// Validate checks that both challenge outcomes are known enum values.
func (d SuspectedDrug) Validate() error {
	if !d.Dechallenge.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDechallenge, string(d.Dechallenge))
	}
	if !d.Rechallenge.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRechallenge, string(d.Rechallenge))
	}
	return nil
}

// Case is one adverse drug reaction report submitted for causality assessment.
// MedicalHistory distinguishes "not provided" (nil) from "provided but empty".
type Case struct {
	ReportCode          string          `json:"report_code,omitempty"`
	ReactionDescription string          `json:"reaction_description"`
	ReactionOnsetTime   string          `json:"reaction_onset_time,omitempty"`
	OccurrenceDate      Date            `json:"occurrence_date"`
	SeverityLevel       SeverityLevel   `json:"severity_level"`
	RelatedTests        string          `json:"related_tests,omitempty"`
	MedicalHistory      *string         `json:"medical_history,omitempty"`
	TreatmentResponse   string          `json:"treatment_response,omitempty"`
	SuspectedDrugs      []SuspectedDrug `json:"suspected_drugs"`
}

// Validate enforces the minimum data required to run an assessment.
// It returns a *ValidationError naming the first offending field.
func (c *Case) Validate() error {
	if c == nil {
		return NewValidationError("case", "case is required", nil)
	}
	if strings.TrimSpace(c.ReactionDescription) == "" {
		return NewValidationError("reaction_description", "reaction description is required", c.ReactionDescription)
	}
	if c.OccurrenceDate.IsZero() {
		return NewValidationError("occurrence_date", "occurrence date is required", nil)
	}
	if len(c.SuspectedDrugs) == 0 {
		return NewValidationError("suspected_drugs", "at least one suspected drug is required", nil)
	}
	if !c.SeverityLevel.IsValid() {
		return NewValidationError("severity_level",
			fmt.Sprintf("%s: must be one of death, life_threatening, hospitalization, birth_defect, permanent_disability, not_serious", ErrInvalidSeverity),
			string(c.SeverityLevel))
	}
	for i, drug := range c.SuspectedDrugs {
		if err := drug.Validate(); err != nil {
			return NewValidationError(fmt.Sprintf("suspected_drugs[%d]", i), err.Error(), drug.Name)
		}
	}
	return nil
}

// HasOnsetTime reports whether a non-blank onset time was recorded.
func (c *Case) HasOnsetTime() bool {
	return strings.TrimSpace(c.ReactionOnsetTime) != ""
}

// HasRelatedTests reports whether lab or test findings were recorded.
func (c *Case) HasRelatedTests() bool {
	return strings.TrimSpace(c.RelatedTests) != ""
}

// HasMedicalHistory reports whether a non-blank medical history was recorded.
func (c *Case) HasMedicalHistory() bool {
	return c.MedicalHistory != nil && strings.TrimSpace(*c.MedicalHistory) != ""
}

// HasTreatmentResponse reports whether the response to treatment was recorded.
func (c *Case) HasTreatmentResponse() bool {
	return strings.TrimSpace(c.TreatmentResponse) != ""
}

// Clone returns a deep copy of the case.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	if c.MedicalHistory != nil {
		history := *c.MedicalHistory
		out.MedicalHistory = &history
	}
	if c.SuspectedDrugs != nil {
		out.SuspectedDrugs = make([]SuspectedDrug, len(c.SuspectedDrugs))
		for i, drug := range c.SuspectedDrugs {
			if drug.StartDate != nil {
				start := *drug.StartDate
				drug.StartDate = &start
			}
			if drug.EndDate != nil {
				end := *drug.EndDate
				drug.EndDate = &end
			}
			out.SuspectedDrugs[i] = drug
		}
	}
	return &out
}

// LogFields returns structured logging fields that carry no free-text patient data.
func (c *Case) LogFields() map[string]any {
	return map[string]any{
		"report_code":    c.ReportCode,
		"severity_level": string(c.SeverityLevel),
		"drug_count":     len(c.SuspectedDrugs),
		"has_onset_time": c.HasOnsetTime(),
		"has_tests":      c.HasRelatedTests(),
	}
}
