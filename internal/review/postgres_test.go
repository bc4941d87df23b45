package review

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var overrideRowColumns = []string{
	"id", "clinician_id", "patient_id", "node_id", "status", "original_status",
	"original_evidence", "note", "created_at", "updated_at",
}

var feedbackRowColumns = []string{
	"id", "clinician_id", "patient_id", "entry_date_iso", "span", "label",
	"feedback_type", "created_at", "updated_at",
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_SaveOverride(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO clinician_overrides")).
		WithArgs("clin-1", "pat-1", "SYMPTOM_SLEEP", "MET", "UNKNOWN",
			"no entries in window", "confirmed in session", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, created))

	override := testOverride("SYMPTOM_SLEEP", criteria.StatusMet)
	require.NoError(t, store.SaveOverride(context.Background(), override))

	assert.Equal(t, int64(42), override.ID)
	assert.Equal(t, created, override.CreatedAt)
	assert.False(t, override.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveOverride_InvalidSkipsDatabase(t *testing.T) {
	store, mock := newMockStore(t)

	err := store.SaveOverride(context.Background(), testOverride("", criteria.StatusMet))

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveOverride_DatabaseError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO clinician_overrides")).
		WillReturnError(errors.New("connection reset"))

	err := store.SaveOverride(context.Background(), testOverride("SYMPTOM_SLEEP", criteria.StatusMet))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save override")
}

func TestPostgresStore_GetOverride(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clinician_overrides")).
		WithArgs("clin-1", "pat-1", "SYMPTOM_SLEEP").
		WillReturnRows(sqlmock.NewRows(overrideRowColumns).
			AddRow(7, "clin-1", "pat-1", "SYMPTOM_SLEEP", "EXCLUDED", "MET", "", "", now, now))

	got, err := store.GetOverride(context.Background(), "clin-1", "pat-1", "SYMPTOM_SLEEP")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, criteria.StatusExcluded, got.Status)
	assert.Equal(t, criteria.StatusMet, got.OriginalStatus)
}

func TestPostgresStore_GetOverride_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clinician_overrides")).
		WillReturnError(sql.ErrNoRows)

	got, err := store.GetOverride(context.Background(), "clin-1", "pat-1", "SYMPTOM_SLEEP")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_ListOverrides(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY updated_at ASC")).
		WithArgs("pat-1").
		WillReturnRows(sqlmock.NewRows(overrideRowColumns).
			AddRow(1, "clin-1", "pat-1", "SYMPTOM_SLEEP", "MET", "UNKNOWN", "", "", now, now).
			AddRow(2, "clin-2", "pat-1", "SYMPTOM_SLEEP", "EXCLUDED", "UNKNOWN", "", "", now, now.Add(time.Hour)))

	list, err := store.ListOverrides(context.Background(), "pat-1")

	require.NoError(t, err)
	require.Len(t, list, 2)
	entries := OverrideEntries(list)
	assert.Equal(t, []criteria.OverrideEntry{
		{NodeID: "SYMPTOM_SLEEP", Status: criteria.StatusMet},
		{NodeID: "SYMPTOM_SLEEP", Status: criteria.StatusExcluded},
	}, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteOverride(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM clinician_overrides WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteOverride(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEvidenceFeedback(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO evidence_feedback")).
		WithArgs("clin-1", "pat-1", "2024-03-01", "felt low", criteria.LabelMood, "wrong_label",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, created))

	feedback := testFeedback("2024-03-01", "felt low", FeedbackWrongLabel)
	require.NoError(t, store.SaveEvidenceFeedback(context.Background(), feedback))

	assert.Equal(t, int64(3), feedback.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvidenceFeedback(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM evidence_feedback")).
		WithArgs("pat-1").
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns).
			AddRow(1, "clin-1", "pat-1", "2024-03-01", "felt low", criteria.LabelMood, "wrong_polarity", now, now).
			AddRow(2, "clin-1", "pat-1", "2024-03-02", "tired", "SYMPTOM_SOMATIC", "correct", now, now))

	list, err := store.ListEvidenceFeedback(context.Background(), "pat-1")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, FeedbackWrongPolarity, list[0].FeedbackType)
	assert.Equal(t, criteria.NewEvidenceKeySet("2024-03-01::felt low"), RejectedKeys(list))
}

func TestPostgresStore_ListEvidenceFeedback_ScanError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM evidence_feedback")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	_, err := store.ListEvidenceFeedback(context.Background(), "pat-1")

	assert.Error(t, err)
}
