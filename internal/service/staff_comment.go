package service

import (
	"fmt"
	"strings"

	"github.com/adr-causality-server/internal/domain"
)

// StaffReviewNotice closes every pre-filled staff comment.
const StaffReviewNotice = "[Please review and complete with the expert assessment]"

// FormatStaffComment renders a suggestion as the text pre-filled into the
// medical staff comment field of a report.
func FormatStaffComment(s *domain.AssessmentSuggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AI suggestion: %s (confidence %d%%)\n\n", s.OverallRecommendation, s.Confidence)
	fmt.Fprintf(&b, "Reasoning: %s", strings.Join(s.Reasoning, "; "))
	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "\n\nWarnings: %s", strings.Join(s.Warnings, "; "))
	}
	b.WriteString("\n\n")
	b.WriteString(StaffReviewNotice)
	return b.String()
}

// SuggestedScale picks the scale the reviewer records the result on: Naranjo
// when its total score is positive, otherwise WHO-UMC.
func SuggestedScale(s *domain.AssessmentSuggestion) domain.AssessmentScale {
	if s.NaranjoResult.TotalScore > 0 {
		return domain.SCALE_NARANJO
	}
	return domain.SCALE_WHO
}
