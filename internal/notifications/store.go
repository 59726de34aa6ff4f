package notifications

import (
	"context"
	"time"
)

// Store defines the interface for the notification job collection.
// Implementations return copies and never share job memory with callers.
type Store interface {
	Insert(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)

	// ListPending returns pending jobs oldest first. limit <= 0 means no limit.
	ListPending(ctx context.Context, limit int) ([]*Job, error)

	// MarkInFlight moves a pending job to in_flight, counts the attempt and
	// returns the updated job. Returns ErrJobNotPending if the job is not pending.
	MarkInFlight(ctx context.Context, id string, at time.Time) (*Job, error)

	// Save persists state, attempt count and last error of an existing job.
	Save(ctx context.Context, job *Job) error

	Stats(ctx context.Context) (QueueStats, error)

	// RequeueStale returns in_flight jobs last attempted before the given time
	// to pending, or abandons them when they reached maxAttempts.
	RequeueStale(ctx context.Context, before time.Time, maxAttempts int) (int64, error)

	// DeleteTerminal removes delivered and abandoned jobs inactive since before.
	DeleteTerminal(ctx context.Context, before time.Time) (int64, error)
}

// AttemptInterruptedMessage is recorded on jobs abandoned by RequeueStale.
const AttemptInterruptedMessage = "attempt interrupted before completion"

// QueueStats contains queue counters derived from the job set.
type QueueStats struct {
	Pending        int `json:"pending"`
	InFlight       int `json:"in_flight"`
	Delivered      int `json:"delivered"`
	Failed         int `json:"failed"`
	Abandoned      int `json:"abandoned"`
	TotalProcessed int `json:"total_processed"`
}

// StatsFromJobs computes queue stats from a job set.
// Failed counts jobs whose most recent attempt failed.
func StatsFromJobs(jobs []*Job) QueueStats {
	var s QueueStats
	for _, j := range jobs {
		switch j.State {
		case JobStatePending:
			s.Pending++
		case JobStateInFlight:
			s.InFlight++
		case JobStateDelivered:
			s.Delivered++
		case JobStateAbandoned:
			s.Abandoned++
		}
		if j.LastError != "" {
			s.Failed++
		}
	}
	s.TotalProcessed = s.Delivered + s.Abandoned
	return s
}
