package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory. A single lock covers enqueue and
// pass mutations; readers take the read lock.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
	}
}

// Insert adds a job.
func (s *MemoryStore) Insert(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	s.jobs[job.ID] = job.Clone()
	s.order = append(s.order, job.ID)
	return nil
}

// Get returns a job by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListPending returns pending jobs in enqueue order.
func (s *MemoryStore) ListPending(_ context.Context, limit int) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0)
	for _, id := range s.order {
		job := s.jobs[id]
		if job.State != JobStatePending {
			continue
		}
		result = append(result, job.Clone())
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// MarkInFlight claims a pending job.
func (s *MemoryStore) MarkInFlight(_ context.Context, id string, at time.Time) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.State != JobStatePending {
		return nil, ErrJobNotPending
	}

	job.State = JobStateInFlight
	job.AttemptCount++
	job.LastAttemptAt = &at
	return job.Clone(), nil
}

// Save stores the mutable fields of an existing job.
func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}

	stored.State = job.State
	stored.AttemptCount = job.AttemptCount
	stored.LastError = job.LastError
	if job.LastAttemptAt != nil {
		t := *job.LastAttemptAt
		stored.LastAttemptAt = &t
	}
	return nil
}

// Stats computes counters over all stored jobs.
func (s *MemoryStore) Stats(_ context.Context) (QueueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	return StatsFromJobs(jobs), nil
}

// RequeueStale recovers jobs left in flight by an interrupted pass.
func (s *MemoryStore) RequeueStale(_ context.Context, before time.Time, maxAttempts int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, job := range s.jobs {
		if job.State != JobStateInFlight || !job.lastActivity().Before(before) {
			continue
		}
		if job.AttemptCount >= maxAttempts {
			job.State = JobStateAbandoned
			job.LastError = AttemptInterruptedMessage
		} else {
			job.State = JobStatePending
		}
		n++
	}
	return n, nil
}

// DeleteTerminal drops delivered and abandoned jobs inactive since before.
func (s *MemoryStore) DeleteTerminal(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	kept := s.order[:0]
	for _, id := range s.order {
		job := s.jobs[id]
		if job.State.IsTerminal() && job.lastActivity().Before(before) {
			delete(s.jobs, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return n, nil
}
