package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	litecfg "github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
)

func newTestLiteServer(t *testing.T) *LiteServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &litecfg.LiteConfig{
		DataDir:       filepath.Join(t.TempDir(), "adr"),
		CacheMaxItems: 10,
		CacheTTL:      time.Minute,
		Transport:     "stdio",
		LogLevel:      "error",
		LogFormat:     "json",
	}

	s, err := NewLiteServer(cfg, WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func probableParams() AssessCausalityParams {
	history := ""
	return AssessCausalityParams{
		ReportCode:          "ADR-2024-007",
		ReactionDescription: "Phát ban toàn thân",
		ReactionOnsetTime:   "2 giờ",
		OccurrenceDate:      "2024-05-02",
		SeverityLevel:       "not_serious",
		MedicalHistory:      &history,
		SuspectedDrugs: []DrugParams{{
			Name:        "Ceftriaxone",
			Dechallenge: "yes",
			Rechallenge: "no_information",
		}},
	}
}

func TestNewLiteServer(t *testing.T) {
	s := newTestLiteServer(t)

	assert.NotNil(t, s.GetReviewStore())
	assert.NotNil(t, s.GetAssessor())
	assert.DirExists(t, s.config.ExportDir())
	assert.FileExists(t, s.config.ReviewDBPath())
}

func TestNewLiteServer_NilLogger(t *testing.T) {
	cfg := &litecfg.LiteConfig{DataDir: t.TempDir(), CacheMaxItems: 1, CacheTTL: time.Minute}
	_, err := NewLiteServer(cfg, WithLogger(nil))
	assert.Error(t, err)
}

func TestHandleAssessCausality(t *testing.T) {
	s := newTestLiteServer(t)

	res, _, err := s.handleAssessCausality(context.Background(), nil, probableParams())
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out AssessCausalityResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.NotNil(t, out.Suggestion)
	assert.Equal(t, domain.WHO_PROBABLE, out.Suggestion.WHOResult.SuggestedLevel)
	assert.Equal(t, domain.PROBABLE, out.Suggestion.OverallRecommendation)
	assert.Contains(t, out.StaffComment, "AI suggestion: probable")
}

func TestHandleAssessCausality_InvalidInput(t *testing.T) {
	s := newTestLiteServer(t)

	tests := []struct {
		name   string
		mutate func(p *AssessCausalityParams)
		field  string
	}{
		{"bad occurrence date", func(p *AssessCausalityParams) { p.OccurrenceDate = "02/05/2024" }, "occurrence_date"},
		{"bad drug start date", func(p *AssessCausalityParams) { p.SuspectedDrugs[0].StartDate = "yesterday" }, "suspected_drugs[0].start_date"},
		{"missing drugs", func(p *AssessCausalityParams) { p.SuspectedDrugs = nil }, "suspected_drugs"},
		{"unknown severity", func(p *AssessCausalityParams) { p.SeverityLevel = "mild" }, "severity_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := probableParams()
			tt.mutate(&params)

			res, _, err := s.handleAssessCausality(context.Background(), nil, params)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.field)
		})
	}
}

func TestHandleEngineStatus(t *testing.T) {
	s := newTestLiteServer(t)

	res, _, err := s.handleEngineStatus(context.Background(), nil, EngineStatusParams{})
	require.NoError(t, err)

	var status domain.EngineStatus
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &status))
	assert.Equal(t, "memory", status.CacheBackend)
	assert.NotEmpty(t, status.EngineVersion)
}

func TestReviewTools(t *testing.T) {
	s := newTestLiteServer(t)
	ctx := context.Background()

	res, _, err := s.handleRecordReview(ctx, nil, RecordReviewParams{
		ReportCode:          "ADR-2024-007",
		SuggestedCategory:   "probable",
		SuggestedConfidence: 77,
		StaffCategory:       "possible",
		AssessmentScale:     "who",
		Notes:               "alternative cause not excluded",
	})
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var saved review.Review
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &saved))
	assert.False(t, saved.StaffAgreed)

	res, _, err = s.handleRecordReview(ctx, nil, RecordReviewParams{ReportCode: "ADR-2024-008", StaffCategory: "maybe"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, _, err = s.handleGetReview(ctx, nil, GetReviewParams{ReportCode: "ADR-2024-007"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"staff_category": "possible"`)

	res, _, err = s.handleGetReview(ctx, nil, GetReviewParams{ReportCode: "ADR-0000"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, _, err = s.handleListReviews(ctx, nil, ListReviewsParams{Limit: 1000, Offset: -4})
	require.NoError(t, err)
	var listed struct {
		Reviews []review.Review `json:"reviews"`
		Total   int64           `json:"total"`
		Limit   int             `json:"limit"`
		Offset  int             `json:"offset"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &listed))
	assert.Len(t, listed.Reviews, 1)
	assert.EqualValues(t, 1, listed.Total)
	assert.Equal(t, maxListLimit, listed.Limit)
	assert.Equal(t, 0, listed.Offset)
}

func TestHandleExportReviews(t *testing.T) {
	s := newTestLiteServer(t)
	ctx := context.Background()

	_, _, err := s.handleRecordReview(ctx, nil, RecordReviewParams{
		ReportCode:          "ADR-2024-009",
		SuggestedCategory:   "possible",
		SuggestedConfidence: 60,
		StaffCategory:       "possible",
		AssessmentScale:     "naranjo",
	})
	require.NoError(t, err)

	res, _, err := s.handleExportReviews(ctx, nil, ExportReviewsParams{Filename: "../escape.json"})
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	path := filepath.Join(s.config.ExportDir(), "escape.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export review.ReviewExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, 1, export.Count)
	assert.Equal(t, "ADR-2024-009", export.Reviews[0].ReportCode)
}

func TestNewLiteServer_WithAssessor(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	base := newTestLiteServer(t)
	store, err := review.NewSQLiteStore(filepath.Join(t.TempDir(), "shared.db"), logger)
	require.NoError(t, err)

	cfg := &litecfg.LiteConfig{DataDir: t.TempDir(), CacheMaxItems: 1, CacheTTL: time.Minute}
	s, err := NewLiteServer(cfg,
		WithLogger(logger),
		WithAssessor(base.GetAssessor()),
		WithReviewStore(store),
		WithImplementation("adr-causality-server", "1.0.0"),
	)
	require.NoError(t, err)
	defer s.Close()

	assert.Same(t, base.GetAssessor(), s.GetAssessor())
	assert.Same(t, store, s.GetReviewStore())
	assert.Equal(t, "adr-causality-server", s.impl.Name)

	_, err = NewLiteServer(cfg, WithImplementation("", "1.0.0"))
	assert.Error(t, err)
}
