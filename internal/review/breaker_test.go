package review

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore errors on every list call and counts them.
type failingStore struct {
	SQLiteStore
	calls int
}

func (f *failingStore) ListOverrides(ctx context.Context, patientID string) ([]*Override, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingStore) SaveOverride(ctx context.Context, override *Override) error {
	f.calls++
	return override.Validate()
}

func (f *failingStore) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGuardedStore_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &failingStore{}
	guarded := NewGuardedStore(inner, domain.BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, quietLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := guarded.ListOverrides(ctx, "pat-1")
		require.Error(t, err)
	}
	assert.Equal(t, "open", guarded.State())

	_, err := guarded.ListOverrides(ctx, "pat-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedStore_ValidationErrorsDoNotTrip(t *testing.T) {
	inner := &failingStore{}
	guarded := NewGuardedStore(inner, domain.BreakerConfig{FailureThreshold: 1, Timeout: time.Minute}, quietLogger())

	for i := 0; i < 3; i++ {
		err := guarded.SaveOverride(context.Background(), &Override{})
		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
	}

	assert.Equal(t, "closed", guarded.State())
	assert.Equal(t, 3, inner.calls)
}

func TestGuardedStore_PassesThrough(t *testing.T) {
	store := createTestStore(t)
	guarded := NewGuardedStore(store, domain.BreakerConfig{}, quietLogger())
	ctx := context.Background()

	require.NoError(t, guarded.SaveOverride(ctx, testOverride("SYMPTOM_SLEEP", "MET")))

	got, err := guarded.GetOverride(ctx, "clin-1", "pat-1", "SYMPTOM_SLEEP")
	require.NoError(t, err)
	require.NotNil(t, got)

	missing, err := guarded.GetOverride(ctx, "clin-1", "pat-1", "SYMPTOM_MOOD")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := guarded.ListOverrides(ctx, "pat-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
