package jobs

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryBackend keeps jobs in a bounded LRU. When full, the least recently touched
// job is evicted even if it has not expired.
type MemoryBackend struct {
	cache *lru.Cache[string, Job]
}

// NewMemoryBackend creates an in-process backend holding at most maxItems jobs.
func NewMemoryBackend(maxItems int) (*MemoryBackend, error) {
	cache, err := lru.New[string, Job](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create job cache: %w", err)
	}
	return &MemoryBackend{cache: cache}, nil
}

// Save stores a copy of job. Expiry is enforced by the tracker's clock.
func (m *MemoryBackend) Save(_ context.Context, job *Job, _ time.Duration) error {
	m.cache.Add(job.ID, *job)
	return nil
}

// Load returns a copy of the stored job.
func (m *MemoryBackend) Load(_ context.Context, id string) (*Job, error) {
	job, ok := m.cache.Get(id)
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// Delete removes a job.
func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

// Len returns the number of stored jobs, expired or not.
func (m *MemoryBackend) Len() int {
	return m.cache.Len()
}
