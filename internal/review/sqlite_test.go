package review

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adr-causality-server/internal/domain"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reviews.db"), newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReview(code string) *Review {
	return &Review{
		ReportCode:          code,
		SuggestedCategory:   domain.PROBABLE,
		SuggestedConfidence: 77,
		StaffCategory:       domain.WHO_PROBABLE,
		AssessmentScale:     domain.SCALE_NARANJO,
		StaffComment:        "AI suggestion: probable (confidence 77%)",
		Notes:               "Confirmed at pharmacovigilance meeting",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "reviews.db")

	store, err := NewSQLiteStore(dbPath, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := sampleReview("ADR-2024-001")
	err := store.Save(ctx, r)

	require.NoError(t, err)
	assert.NotZero(t, r.ID, "ID should be assigned")
	assert.True(t, r.StaffAgreed)
	assert.False(t, r.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, r.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := sampleReview("ADR-2024-001")
	require.NoError(t, store.Save(ctx, r))
	originalID := r.ID

	r.StaffCategory = domain.WHO_POSSIBLE
	r.Notes = "Downgraded after lab results"
	require.NoError(t, store.Save(ctx, r))
	assert.Equal(t, originalID, r.ID, "Save should upsert by report code")

	got, err := store.Get(ctx, "ADR-2024-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.WHO_POSSIBLE, got.StaffCategory)
	assert.False(t, got.StaffAgreed)
	assert.Equal(t, "Downgraded after lab results", got.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Save_Invalid(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *Review)
	}{
		{"missing report code", func(r *Review) { r.ReportCode = "  " }},
		{"unknown staff category", func(r *Review) { r.StaffCategory = "maybe" }},
		{"unknown suggested category", func(r *Review) { r.SuggestedCategory = "likely" }},
		{"confidence above ceiling", func(r *Review) { r.SuggestedConfidence = 99 }},
		{"unknown scale", func(r *Review) { r.AssessmentScale = "rucam" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleReview("ADR-X")
			tt.mutate(r)
			assert.ErrorIs(t, store.Save(ctx, r), ErrInvalidReview)
		})
	}
}

func TestSQLiteStore_Get(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := sampleReview("ADR-2024-002")
	r.StaffCategory = domain.WHO_UNCLASSIFIABLE
	r.AssessmentScale = domain.SCALE_WHO
	require.NoError(t, store.Save(ctx, r))

	got, err := store.Get(ctx, "ADR-2024-002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, domain.PROBABLE, got.SuggestedCategory)
	assert.Equal(t, 77, got.SuggestedConfidence)
	assert.Equal(t, domain.WHO_UNCLASSIFIABLE, got.StaffCategory)
	assert.Equal(t, domain.SCALE_WHO, got.AssessmentScale)
	assert.False(t, got.StaffAgreed, "administrative categories never agree")
	assert.Equal(t, r.StaffComment, got.StaffComment)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)

	got, err := store.Get(context.Background(), "ADR-MISSING")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"ADR-1", "ADR-2", "ADR-3"} {
		require.NoError(t, store.Save(ctx, sampleReview(code)))
	}

	first, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, "ADR-3", first[0].ReportCode, "newest first")

	rest, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "ADR-1", rest[0].ReportCode)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := sampleReview("ADR-DEL")
	require.NoError(t, store.Save(ctx, r))
	require.NoError(t, store.Delete(ctx, r.ID))

	got, err := store.Get(ctx, "ADR-DEL")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ExportImportJSON(t *testing.T) {
	source := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, sampleReview("ADR-A")))
	require.NoError(t, source.Save(ctx, sampleReview("ADR-B")))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	var export ReviewExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 2, export.Count)

	target := createTestStore(t)
	require.NoError(t, target.Save(ctx, sampleReview("ADR-A")))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportJSON_Empty(t *testing.T) {
	store := createTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"reviews": []`)
}

func TestSQLiteStore_ImportJSON_Malformed(t *testing.T) {
	store := createTestStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
