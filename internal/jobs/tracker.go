// Package jobs tracks the progress of asynchronous summary evaluations. Jobs expire a
// fixed time after creation; expiry is checked against an injected clock so tests and
// callers never depend on wall-clock timers.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultTTL is how long a job stays retrievable after creation.
const DefaultTTL = 30 * time.Minute

// Job is a snapshot of one summary job.
type Job struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	RangeDays int             `json:"range_days"`
	Status    Status          `json:"status"`
	Stage     string          `json:"stage"`
	Percent   int             `json:"percent"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Update carries the fields a progress report may change. Zero values are left alone.
type Update struct {
	Status  Status
	Stage   string
	Percent *int
}

// Backend persists job snapshots.
type Backend interface {
	// Save stores job; ttl is the time remaining until it expires.
	Save(ctx context.Context, job *Job, ttl time.Duration) error
	// Load returns nil when the job does not exist.
	Load(ctx context.Context, id string) (*Job, error)
	// Delete removes a job if present.
	Delete(ctx context.Context, id string) error
}

// Clock returns the current time.
type Clock func() time.Time

// Tracker creates and updates jobs. It is safe for concurrent use.
type Tracker struct {
	backend Backend
	ttl     time.Duration
	now     Clock
	logger  *logrus.Logger
	mu      sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(t *Tracker) { t.now = clock }
}

// WithTTL sets how long jobs remain retrievable.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// NewTracker creates a tracker over backend.
func NewTracker(backend Backend, logger *logrus.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create registers a queued job for userID covering rangeDays of journal history.
func (t *Tracker) Create(ctx context.Context, userID string, rangeDays int) (*Job, error) {
	now := t.now().UTC()
	job := &Job{
		ID:        uuid.New().String(),
		UserID:    userID,
		RangeDays: rangeDays,
		Status:    StatusQueued,
		Stage:     string(StatusQueued),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(t.ttl),
	}

	if err := t.backend.Save(ctx, job, t.ttl); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"user_id":    userID,
		"range_days": rangeDays,
	}).Debug("Summary job created")
	return job, nil
}

// Get returns a job, or domain.ErrRecordNotFound when it is unknown or expired.
func (t *Tracker) Get(ctx context.Context, id string) (*Job, error) {
	job, err := t.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Update applies a progress report to a running job.
func (t *Tracker) Update(ctx context.Context, id string, update Update) (*Job, error) {
	return t.mutate(ctx, id, func(job *Job) {
		if update.Status != "" {
			job.Status = update.Status
		}
		if update.Stage != "" {
			job.Stage = update.Stage
		}
		if update.Percent != nil {
			job.Percent = clamp(*update.Percent, 0, 100)
		}
	})
}

// Complete marks a job finished with result.
func (t *Tracker) Complete(ctx context.Context, id string, result interface{}) (*Job, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job result: %w", err)
	}
	return t.mutate(ctx, id, func(job *Job) {
		job.Status = StatusCompleted
		job.Stage = string(StatusCompleted)
		job.Percent = 100
		job.Result = payload
		job.Error = ""
	})
}

// Fail marks a job failed. Progress is kept but capped below 100.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) (*Job, error) {
	return t.mutate(ctx, id, func(job *Job) {
		job.Status = StatusFailed
		job.Stage = string(StatusFailed)
		job.Percent = clamp(job.Percent, 0, 99)
		if cause != nil {
			job.Error = cause.Error()
		}
	})
}

func (t *Tracker) mutate(ctx context.Context, id string, apply func(*Job)) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.load(ctx, id)
	if err != nil {
		return nil, err
	}

	apply(job)
	now := t.now().UTC()
	job.UpdatedAt = now

	if err := t.backend.Save(ctx, job, job.ExpiresAt.Sub(now)); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return job, nil
}

func (t *Tracker) load(ctx context.Context, id string) (*Job, error) {
	job, err := t.backend.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, domain.ErrRecordNotFound
	}
	if !t.now().Before(job.ExpiresAt) {
		if err := t.backend.Delete(ctx, id); err != nil {
			t.logger.WithError(err).WithField("job_id", id).Warn("Failed to delete expired job")
		}
		return nil, domain.ErrRecordNotFound
	}
	return job, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
