package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/jobs"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

func newJobService(t *testing.T) *CaseEvaluationService {
	t.Helper()
	backend, err := jobs.NewMemoryBackend(10)
	require.NoError(t, err)
	tracker := jobs.NewTracker(backend, quietLogger())
	return NewCaseEvaluationService(quietLogger(), domain.EngineConfig{}, nil, nil, tracker)
}

func waitForJobs(t *testing.T, svc *CaseEvaluationService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.WaitForJobs(ctx))
}

func TestStartSummaryJob_Completes(t *testing.T) {
	svc := newJobService(t)
	ctx := context.Background()

	job, err := svc.StartSummaryJob(ctx, &SummaryJobRequest{
		UserID:    "user-1",
		RangeDays: 7,
		EvaluateRequest: EvaluateRequest{Entries: []criteria.CaseEntry{
			entry("2024-03-01", "SYMPTOM_ANXIETY"),
			entry("2024-03-10", "SYMPTOM_MOOD"),
			entry("2024-03-12", "SYMPTOM_SLEEP"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, job.Status)
	assert.Equal(t, 7, job.RangeDays)

	waitForJobs(t, svc)

	done, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, done.Status)
	assert.Equal(t, 100, done.Percent)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(done.Result, &resp))
	assert.Len(t, resp.JournalEntries, 2, "entries outside the range are dropped")
	assert.Equal(t, []string{"SYMPTOM_MOOD", "SYMPTOM_SLEEP"}, resp.Status.CurrentSymptoms)
}

func TestStartSummaryJob_FailureKeepsProgress(t *testing.T) {
	svc := newJobService(t)
	ctx := context.Background()

	job, err := svc.StartSummaryJob(ctx, &SummaryJobRequest{
		UserID: "user-1",
		EvaluateRequest: EvaluateRequest{
			Entries:   []criteria.CaseEntry{entry("2024-03-01", "SYMPTOM_MOOD")},
			Overrides: map[string]criteria.Status{"SYMPTOM_MOOD": "MAYBE"},
		},
	})
	require.NoError(t, err)

	waitForJobs(t, svc)

	failed, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, failed.Status)
	assert.Equal(t, "failed", failed.Stage)
	assert.Equal(t, 10, failed.Percent)
	assert.Contains(t, failed.Error, "overrides.SYMPTOM_MOOD")
}

func TestStartSummaryJob_Validation(t *testing.T) {
	svc := newJobService(t)
	ctx := context.Background()

	_, err := svc.StartSummaryJob(ctx, &SummaryJobRequest{})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.StartSummaryJob(ctx, &SummaryJobRequest{UserID: "user-1", RangeDays: -1})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.StartSummaryJob(ctx, &SummaryJobRequest{
		UserID:          "user-1",
		EvaluateRequest: EvaluateRequest{Entries: []criteria.CaseEntry{entry("yesterday")}},
	})
	assert.True(t, domain.IsValidationError(err))
}

func TestSummaryJobs_Disabled(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.StartSummaryJob(context.Background(), &SummaryJobRequest{UserID: "user-1"})
	assert.ErrorIs(t, err, ErrJobsDisabled)

	_, err = svc.GetJob(context.Background(), "any")
	assert.ErrorIs(t, err, ErrJobsDisabled)
}

func TestGetJob_Unknown(t *testing.T) {
	svc := newJobService(t)

	_, err := svc.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestEntriesInRange(t *testing.T) {
	entries := []criteria.CaseEntry{
		entry("2024-03-10"),
		entry("2024-03-01"),
		entry("2024-03-04"),
	}

	assert.Len(t, entriesInRange(entries, 0), 3)
	assert.Len(t, entriesInRange(entries, 7), 2)
	assert.Len(t, entriesInRange(entries, 1), 1)
	assert.Equal(t, "2024-03-10", entriesInRange(entries, 1)[0].DateISO)
	assert.Empty(t, entriesInRange(nil, 7))
}
