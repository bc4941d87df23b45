package jobs

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock, *MemoryBackend) {
	t.Helper()
	backend, err := NewMemoryBackend(16)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	return NewTracker(backend, logger, WithClock(clock.Now), WithTTL(30*time.Minute)), clock, backend
}

func intPtr(v int) *int { return &v }

func TestTracker_CreateAndGet(t *testing.T) {
	tracker, clock, _ := newTestTracker(t)
	ctx := context.Background()

	job, err := tracker.Create(ctx, "user-1", 30)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, "queued", job.Stage)
	assert.Equal(t, 0, job.Percent)
	assert.Equal(t, clock.Now().Add(30*time.Minute), job.ExpiresAt)

	got, err := tracker.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 30, got.RangeDays)
}

func TestTracker_GetUnknown(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	_, err := tracker.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestTracker_Expiry(t *testing.T) {
	tracker, clock, backend := newTestTracker(t)
	ctx := context.Background()

	job, err := tracker.Create(ctx, "user-1", 7)
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = tracker.Get(ctx, job.ID)
	require.NoError(t, err)

	// Updates do not extend the lifetime
	_, err = tracker.Update(ctx, job.ID, Update{Stage: "collecting"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = tracker.Get(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.Equal(t, 0, backend.Len(), "expired job should be removed")

	_, err = tracker.Update(ctx, job.ID, Update{Percent: intPtr(50)})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestTracker_Update(t *testing.T) {
	tracker, clock, _ := newTestTracker(t)
	ctx := context.Background()

	job, err := tracker.Create(ctx, "user-1", 14)
	require.NoError(t, err)

	clock.Advance(time.Second)
	updated, err := tracker.Update(ctx, job.ID, Update{Status: StatusRunning, Stage: "evaluating", Percent: intPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, updated.Status)
	assert.Equal(t, "evaluating", updated.Stage)
	assert.Equal(t, 40, updated.Percent)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	// Unset fields are kept
	updated, err = tracker.Update(ctx, job.ID, Update{Percent: intPtr(150)})
	require.NoError(t, err)
	assert.Equal(t, "evaluating", updated.Stage)
	assert.Equal(t, 100, updated.Percent)
}

func TestTracker_Complete(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()

	job, err := tracker.Create(ctx, "user-1", 14)
	require.NoError(t, err)

	done, err := tracker.Complete(ctx, job.ID, map[string]int{"current_symptoms": 3})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "completed", done.Stage)
	assert.Equal(t, 100, done.Percent)
	assert.JSONEq(t, `{"current_symptoms":3}`, string(done.Result))

	got, err := tracker.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_symptoms":3}`, string(got.Result))
}

func TestTracker_Fail(t *testing.T) {
	tests := []struct {
		name        string
		percent     *int
		wantPercent int
	}{
		{name: "keeps partial progress", percent: intPtr(60), wantPercent: 60},
		{name: "caps finished progress", percent: intPtr(100), wantPercent: 99},
		{name: "no progress", percent: nil, wantPercent: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _, _ := newTestTracker(t)
			ctx := context.Background()

			job, err := tracker.Create(ctx, "user-1", 14)
			require.NoError(t, err)
			if tt.percent != nil {
				_, err = tracker.Update(ctx, job.ID, Update{Percent: tt.percent})
				require.NoError(t, err)
			}

			failed, err := tracker.Fail(ctx, job.ID, errors.New("journal unavailable"))
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, failed.Status)
			assert.Equal(t, "failed", failed.Stage)
			assert.Equal(t, tt.wantPercent, failed.Percent)
			assert.Equal(t, "journal unavailable", failed.Error)
		})
	}
}

func TestMemoryBackend_Eviction(t *testing.T) {
	backend, err := NewMemoryBackend(2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, backend.Save(ctx, &Job{ID: id}, time.Minute))
	}

	got, err := backend.Load(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 2, backend.Len())
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	backend, err := NewMemoryBackend(2)
	require.NoError(t, err)
	ctx := context.Background()

	job := &Job{ID: "a", Stage: "queued"}
	require.NoError(t, backend.Save(ctx, job, time.Minute))
	job.Stage = "mutated"

	got, err := backend.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "queued", got.Stage)
}

func TestMemoryBackend_InvalidSize(t *testing.T) {
	_, err := NewMemoryBackend(0)
	assert.Error(t, err)
}

func TestRedisBackend(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	backend, err := NewRedisBackend(ctx, redisURL)
	require.NoError(t, err)
	defer backend.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tracker := NewTracker(backend, logger)

	job, err := tracker.Create(ctx, "user-redis", 7)
	require.NoError(t, err)
	defer backend.Delete(ctx, job.ID)

	done, err := tracker.Complete(ctx, job.ID, []string{"ok"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	got, err := tracker.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-redis", got.UserID)
	assert.JSONEq(t, `["ok"]`, string(got.Result))

	missing, err := backend.Load(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
