package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
	"github.com/adr-causality-server/internal/service"
)

func renderSuggestion(w io.Writer, s *domain.AssessmentSuggestion) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Causality suggestion")
	summary.AppendRows([]table.Row{
		{"Recommendation", s.OverallRecommendation},
		{"Confidence", fmt.Sprintf("%d%%", s.Confidence)},
		{"WHO-UMC", s.WHOResult.SuggestedLevel},
		{"Naranjo", fmt.Sprintf("%s (score %d)", s.NaranjoResult.SuggestedLevel, s.NaranjoResult.TotalScore)},
		{"Suggested scale", service.SuggestedScale(s)},
	})
	summary.Render()

	criteria := s.WHOResult.CriteriaAnalysis
	who := table.NewWriter()
	who.SetOutputMirror(w)
	who.AppendHeader(table.Row{"WHO criterion", "Finding"})
	who.AppendRows([]table.Row{
		{"Temporal relationship", criteria.TemporalRelationship},
		{"No alternative cause", criteria.NoAlternativeCause},
		{"Dechallenge improvement", criteria.DechallengeImprovement},
		{"Known reaction", criteria.IsKnownReaction},
		{"Rechallenge positive", criteria.RechallengePositive},
	})
	who.Render()

	naranjo := table.NewWriter()
	naranjo.SetOutputMirror(w)
	naranjo.AppendHeader(table.Row{"#", "Naranjo question", "Score", "Basis"})
	for _, q := range s.NaranjoResult.QuestionScores {
		naranjo.AppendRow(table.Row{q.Number, q.Question, q.Score, q.EvidenceBasis})
	}
	naranjo.AppendFooter(table.Row{"", "Total", s.NaranjoResult.TotalScore, ""})
	naranjo.Render()

	fmt.Fprintf(w, "Reasoning: %s\n", strings.Join(s.Reasoning, "; "))
	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings: %s\n", strings.Join(s.Warnings, "; "))
	}
}

func renderReviews(w io.Writer, reviews []*review.Review) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Report", "Suggested", "Confidence", "Staff", "Scale", "Agreed", "Updated"})
	for _, r := range reviews {
		tw.AppendRow(table.Row{
			r.ID,
			r.ReportCode,
			r.SuggestedCategory,
			r.SuggestedConfidence,
			r.StaffCategory,
			r.AssessmentScale,
			r.StaffAgreed,
			r.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	tw.Render()
}
