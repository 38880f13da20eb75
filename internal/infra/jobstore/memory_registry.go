// File: internal/infra/jobstore/memory_registry.go
package jobstore

import (
	"context"
	"sync"
	"time"

	"echobook/internal/domain"
	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/repository"
	"echobook/internal/infra/metrics"
)

// Compile-time check
var _ repository.JobRegistry = (*MemoryRegistry)(nil)

// MemoryRegistry keeps job records in process memory. Records live as long
// as the process; nothing is evicted.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
	now  func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		jobs: make(map[string]*model.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRegistry) Create(ctx context.Context, jobID, voiceID string) error {
	job, err := model.NewJob(jobID, voiceID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[jobID]; ok {
		return domain.ErrDuplicateJob
	}
	job.CreatedAt = r.now()
	job.UpdatedAt = job.CreatedAt
	r.jobs[jobID] = job
	metrics.SetJobsTracked(len(r.jobs))
	return nil
}

// Get returns a copy so callers never observe a record mid-update.
func (r *MemoryRegistry) Get(ctx context.Context, jobID string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *MemoryRegistry) SetTerminal(ctx context.Context, jobID string, outcome model.JobOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	// Apply on a scratch copy; the stored record only changes on success.
	next := *job
	if err := next.Apply(outcome); err != nil {
		return err
	}
	next.UpdatedAt = r.now()
	*job = next
	return nil
}

func (r *MemoryRegistry) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
