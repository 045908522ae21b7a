package review

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adr-causality-server/internal/domain"
)

var reviewColumns = []string{
	"id", "report_code", "suggested_category", "suggested_confidence",
	"staff_category", "assessment_scale", "staff_agreed", "staff_comment", "notes",
	"created_at", "updated_at",
}

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil, newTestLogger())
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO causality_reviews")).
		WithArgs("ADR-2024-001", "probable", 77, "probable", "naranjo", true,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	r := sampleReview("ADR-2024-001")
	require.NoError(t, store.Save(context.Background(), r))

	assert.Equal(t, int64(42), r.ID)
	assert.Equal(t, created, r.CreatedAt)
	assert.True(t, r.StaffAgreed)
	assert.False(t, r.UpdatedAt.IsZero())
}

func TestPostgresStore_Save_InvalidSkipsDatabase(t *testing.T) {
	store, _ := setupMockStore(t)

	r := sampleReview("")
	assert.ErrorIs(t, store.Save(context.Background(), r), ErrInvalidReview)
}

func TestPostgresStore_Save_DatabaseError(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO causality_reviews")).
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), sampleReview("ADR-1"))
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM causality_reviews WHERE report_code = $1")).
		WithArgs("ADR-7").
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(int64(7), "ADR-7", "possible", 62, "unlikely", "who", false, "", "", now, now))

	got, err := store.Get(context.Background(), "ADR-7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.POSSIBLE, got.SuggestedCategory)
	assert.Equal(t, domain.WHO_UNLIKELY, got.StaffCategory)
	assert.Equal(t, domain.SCALE_WHO, got.AssessmentScale)
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM causality_reviews WHERE report_code = $1")).
		WithArgs("ADR-NONE").
		WillReturnRows(sqlmock.NewRows(reviewColumns))

	got, err := store.Get(context.Background(), "ADR-NONE")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_ListCountDelete(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(int64(2), "ADR-2", "certain", 95, "certain", "naranjo", true, "", "", now, now).
			AddRow(int64(1), "ADR-1", "unlikely", 40, "unclassified", "who", false, "", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM causality_reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM causality_reviews WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	list, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ADR-2", list[0].ReportCode)
	assert.Equal(t, domain.WHO_UNCLASSIFIED, list[1].StaffCategory)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.NoError(t, store.Delete(ctx, 1))
}
