package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/jobs"
	"github.com/mindstorm-criteria-engine/internal/metrics"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// ErrJobsDisabled is returned when the service has no job tracker.
var ErrJobsDisabled = errors.New("summary jobs are not enabled")

const summaryJobTimeout = 2 * time.Minute

// SummaryJobRequest asks for an asynchronous evaluation of a user's recent history.
type SummaryJobRequest struct {
	UserID string `json:"user_id"`
	// RangeDays limits the evaluation to entries within this many days of the latest
	// entry. Zero keeps all entries.
	RangeDays int `json:"range_days"`
	EvaluateRequest
}

type jobGroup struct {
	wg sync.WaitGroup
}

func newJobGroup() *jobGroup { return &jobGroup{} }

// StartSummaryJob registers a job and evaluates it in the background. Progress is
// reported through the tracker; callers poll GetJob.
func (s *CaseEvaluationService) StartSummaryJob(ctx context.Context, req *SummaryJobRequest) (*jobs.Job, error) {
	if s.tracker == nil {
		return nil, ErrJobsDisabled
	}
	if req.UserID == "" {
		return nil, domain.NewValidationError("user_id", "user id is required", "")
	}
	if req.RangeDays < 0 {
		return nil, domain.NewValidationError("range_days", "range must not be negative", req.RangeDays)
	}
	if err := ValidateEntries(req.Entries); err != nil {
		return nil, err
	}

	job, err := s.tracker.Create(ctx, req.UserID, req.RangeDays)
	if err != nil {
		return nil, err
	}
	metrics.RecordJobTransition(string(jobs.StatusQueued))

	evalReq := req.EvaluateRequest
	evalReq.Origin = OriginJob
	if evalReq.PatientID == "" {
		evalReq.PatientID = req.UserID
	}
	evalReq.Entries = entriesInRange(req.Entries, req.RangeDays)

	s.running.wg.Add(1)
	go func() {
		defer s.running.wg.Done()
		s.runSummaryJob(job.ID, &evalReq)
	}()

	return job, nil
}

// GetJob returns a summary job snapshot.
func (s *CaseEvaluationService) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	if s.tracker == nil {
		return nil, ErrJobsDisabled
	}
	return s.tracker.Get(ctx, id)
}

// WaitForJobs blocks until every background job has finished or ctx is done.
func (s *CaseEvaluationService) WaitForJobs(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CaseEvaluationService) runSummaryJob(jobID string, req *EvaluateRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), summaryJobTimeout)
	defer cancel()

	logger := s.logger.WithField("job_id", jobID)
	progress := func(stage string, percent int) {
		if _, err := s.tracker.Update(ctx, jobID, jobs.Update{Status: jobs.StatusRunning, Stage: stage, Percent: &percent}); err != nil {
			logger.WithError(err).Warn("Failed to report job progress")
		}
	}

	progress("evaluating", 10)
	metrics.RecordJobTransition(string(jobs.StatusRunning))

	resp, err := s.Evaluate(ctx, req)
	if err != nil {
		logger.WithError(err).Error("Summary job failed")
		metrics.RecordJobTransition(string(jobs.StatusFailed))
		if _, ferr := s.tracker.Fail(ctx, jobID, err); ferr != nil {
			logger.WithError(ferr).Warn("Failed to record job failure")
		}
		return
	}

	progress("summarizing", 90)

	if _, err := s.tracker.Complete(ctx, jobID, resp); err != nil {
		logger.WithError(err).Warn("Failed to record job completion")
		return
	}
	metrics.RecordJobTransition(string(jobs.StatusCompleted))
	logger.WithFields(logrus.Fields{
		"current_count":       resp.Status.CurrentCount,
		"potential_remission": resp.Status.PotentialRemission,
	}).Info("Summary job completed")
}

// entriesInRange keeps entries dated within rangeDays of the latest entry, inclusive.
func entriesInRange(entries []criteria.CaseEntry, rangeDays int) []criteria.CaseEntry {
	if rangeDays <= 0 || len(entries) == 0 {
		return entries
	}

	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, e.DateISO)
	}
	sort.Strings(dates)
	latest, err := time.Parse("2006-01-02", dates[len(dates)-1])
	if err != nil {
		return entries
	}
	cutoff := latest.AddDate(0, 0, -rangeDays+1).Format("2006-01-02")

	out := make([]criteria.CaseEntry, 0, len(entries))
	for _, e := range entries {
		if e.DateISO >= cutoff {
			out = append(out, e)
		}
	}
	return out
}
