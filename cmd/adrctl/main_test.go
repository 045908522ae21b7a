package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
)

const caseJSON = `{
	"report_code": "ADR-2024-011",
	"reaction_description": "Phát ban toàn thân",
	"reaction_onset_time": "2 giờ",
	"occurrence_date": "2024-05-02",
	"severity_level": "not_serious",
	"medical_history": "",
	"suspected_drugs": [{
		"name": "Amoxicillin",
		"reaction_improved_after_stopping": "yes",
		"reaction_reoccurred_after_rechallenge": "no_information"
	}]
}`

func TestDecodeCase(t *testing.T) {
	c, err := decodeCase(strings.NewReader(caseJSON))
	require.NoError(t, err)
	assert.Equal(t, "ADR-2024-011", c.ReportCode)
	require.NotNil(t, c.MedicalHistory)
	assert.Empty(t, *c.MedicalHistory)
	assert.Equal(t, domain.DECHALLENGE_YES, c.SuspectedDrugs[0].Dechallenge)

	_, err = decodeCase(strings.NewReader(`{"reaction": "typo"}`))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestRenderSuggestion(t *testing.T) {
	c, err := decodeCase(strings.NewReader(caseJSON))
	require.NoError(t, err)

	assessor, err := newAssessor(newLogger())
	require.NoError(t, err)
	suggestion, err := assessor.Assess(context.Background(), c)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderSuggestion(&buf, suggestion)
	out := buf.String()

	assert.Contains(t, out, "Causality suggestion")
	assert.Contains(t, out, "probable")
	assert.Contains(t, out, "Temporal relationship")
	assert.Contains(t, out, "Reasoning: ")
}

func TestRenderReviews(t *testing.T) {
	var buf bytes.Buffer
	renderReviews(&buf, []*review.Review{{
		ID:                  3,
		ReportCode:          "ADR-2024-011",
		SuggestedCategory:   domain.PROBABLE,
		SuggestedConfidence: 77,
		StaffCategory:       domain.WHO_PROBABLE,
		AssessmentScale:     domain.SCALE_WHO,
		StaffAgreed:         true,
		UpdatedAt:           time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "ADR-2024-011")
	assert.Contains(t, out, "2024-05-03 09:30")
	assert.Contains(t, out, "true")
}
