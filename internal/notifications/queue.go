package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// QueueConfig contains queue configuration.
type QueueConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	BatchSize      int
	StaleAfter     time.Duration
	// PassTimeout bounds a pass independently of the callers waiting on it.
	PassTimeout time.Duration
}

// DefaultQueueConfig returns default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxAttempts:    3,
		AttemptTimeout: 15 * time.Second,
		BatchSize:      0,
		StaleAfter:     5 * time.Minute,
		PassTimeout:    2 * time.Minute,
	}
}

// Outcome is the result of one delivery attempt.
type Outcome string

// Attempt outcomes.
const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRetry     Outcome = "retry"
	OutcomeAbandoned Outcome = "abandoned"

	// The pass stopped while the job was being attempted. The job goes back
	// to pending and the attempt is not counted.
	outcomeInterrupted Outcome = "interrupted"
)

type attemptResult struct {
	outcome Outcome
	err     error
}

// PassReport summarizes one processing pass.
type PassReport struct {
	Attempted int        `json:"attempted"`
	Delivered int        `json:"delivered"`
	Retried   int        `json:"retried"`
	Abandoned int        `json:"abandoned"`
	Requeued  int64      `json:"requeued_stale"`
	Duration  string     `json:"duration"`
	Stats     QueueStats `json:"stats"`
}

func (r *PassReport) record(o Outcome) {
	r.Attempted++
	switch o {
	case OutcomeDelivered:
		r.Delivered++
	case OutcomeRetry:
		r.Retried++
	case OutcomeAbandoned:
		r.Abandoned++
	}
}

// Queue buffers order notifications and delivers them to sellers' chats.
// Enqueue never blocks on delivery; ProcessQueue drives delivery and is
// triggered externally (scheduler, cron endpoint or admin request).
type Queue struct {
	config   QueueConfig
	store    Store
	lookup   DestinationLookup
	renderer *Renderer
	sender   Sender

	passes  singleflight.Group
	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
	life    context.Context
	stop    context.CancelFunc
	now     func() time.Time
}

// NewQueue creates a new notification queue.
func NewQueue(config QueueConfig, store Store, lookup DestinationLookup, renderer *Renderer, sender Sender) *Queue {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultQueueConfig().MaxAttempts
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultQueueConfig().AttemptTimeout
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultQueueConfig().StaleAfter
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = DefaultQueueConfig().PassTimeout
	}

	q := &Queue{
		config:   config,
		store:    store,
		lookup:   lookup,
		renderer: renderer,
		sender:   sender,
		now:      time.Now,
	}
	q.life, q.stop = context.WithCancel(context.Background())
	return q
}

// Close cancels a running pass and waits for it to persist its last job.
// Later ProcessQueue calls fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.stop()
	q.running.Wait()
}

// Enqueue stores a pending job and makes it visible to the next pass.
// The job ID and enqueue time are assigned here.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if job == nil || job.DestinationUserID == "" || job.Payload.OrderID == "" {
		return ErrInvalidJob
	}
	if job.State == "" {
		job.State = JobStatePending
	}
	if job.State != JobStatePending || job.AttemptCount != 0 {
		return fmt.Errorf("%w: must be pending with no attempts", ErrInvalidJob)
	}

	job.ID = uuid.NewString()
	job.EnqueuedAt = q.now()

	if err := q.store.Insert(ctx, job); err != nil {
		return storeUnavailable("insert job", err)
	}

	recordJobEnqueued()

	slog.Debug("notification enqueued",
		"job_id", job.ID,
		"user_id", job.DestinationUserID,
		"order_id", job.Payload.OrderID,
		"is_update", job.Payload.IsUpdate,
	)
	return nil
}

// GetStats returns a snapshot of queue counters.
func (q *Queue) GetStats(ctx context.Context) (QueueStats, error) {
	stats, err := q.store.Stats(ctx)
	if err != nil {
		return QueueStats{}, storeUnavailable("get stats", err)
	}
	return stats, nil
}

// GetJob returns a single job.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, storeUnavailable("get job", err)
	}
	return job, nil
}

// PurgeTerminal removes delivered and abandoned jobs inactive since before.
func (q *Queue) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	n, err := q.store.DeleteTerminal(ctx, before)
	if err != nil {
		return 0, storeUnavailable("delete terminal jobs", err)
	}
	jobsPurged.Add(float64(n))
	return n, nil
}

// ProcessQueue attempts delivery of every job pending at the start of the pass.
// Only one pass runs at a time; concurrent callers wait for the running pass
// and share its report. Per-job failures are recorded on the job; only store
// failures are returned.
//
// The pass is not tied to any caller: it runs until done, PassTimeout or Close.
// A caller whose ctx ends stops waiting and gets its own ctx error while the
// pass continues for the others.
func (q *Queue) ProcessQueue(ctx context.Context) (*PassReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("notification pass not started: %w", err)
	}
	if q.life.Err() != nil {
		return nil, ErrQueueClosed
	}

	ch := q.passes.DoChan("pass", func() (interface{}, error) {
		return q.detachedPass(ctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("joined running notification pass")
		}
		report, _ := res.Val.(*PassReport)
		return report, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("stopped waiting for notification pass: %w", ctx.Err())
	}
}

// detachedPass keeps ctx values (request logger) but not its cancellation.
func (q *Queue) detachedPass(ctx context.Context) (*PassReport, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.running.Add(1)
	q.mu.Unlock()
	defer q.running.Done()

	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.config.PassTimeout)
	defer cancel()
	stop := context.AfterFunc(q.life, cancel)
	defer stop()

	return q.runPass(passCtx)
}

func (q *Queue) runPass(ctx context.Context) (*PassReport, error) {
	start := q.now()
	report := &PassReport{}

	requeued, err := q.store.RequeueStale(ctx, start.Add(-q.config.StaleAfter), q.config.MaxAttempts)
	if err != nil {
		recordPass("store_error", time.Since(start))
		return report, storeUnavailable("requeue stale jobs", err)
	}
	report.Requeued = requeued
	jobsRequeued.Add(float64(requeued))
	if requeued > 0 {
		slog.Warn("requeued stale in-flight notifications", "count", requeued)
	}

	pending, err := q.store.ListPending(ctx, q.config.BatchSize)
	if err != nil {
		recordPass("store_error", time.Since(start))
		return report, storeUnavailable("list pending jobs", err)
	}

	if len(pending) > 0 {
		slog.Debug("processing notifications", "count", len(pending))
	}

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			recordPass("cancelled", time.Since(start))
			return report, fmt.Errorf("notification pass cancelled: %w", err)
		}

		job, err := q.store.MarkInFlight(ctx, item.ID, q.now())
		if errors.Is(err, ErrJobNotPending) {
			continue
		}
		if err != nil {
			recordPass("store_error", time.Since(start))
			return report, storeUnavailable("claim job", err)
		}

		result := q.attempt(ctx, job)
		q.apply(job, result)

		// Persist even if the pass is being cancelled so the job does not stay in flight.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = q.store.Save(saveCtx, job)
		cancel()
		if err != nil {
			recordPass("store_error", time.Since(start))
			return report, storeUnavailable("save job", err)
		}

		if result.outcome == outcomeInterrupted {
			recordPass("cancelled", time.Since(start))
			return report, fmt.Errorf("notification pass cancelled: %w", ctx.Err())
		}
		report.record(result.outcome)
		recordAttempt(result.outcome)
	}

	stats, err := q.store.Stats(ctx)
	if err != nil {
		recordPass("store_error", time.Since(start))
		return report, storeUnavailable("get stats", err)
	}
	report.Stats = stats
	RecordQueueStats(stats)

	duration := time.Since(start)
	report.Duration = duration.String()
	recordPass("ok", duration)

	if report.Attempted > 0 {
		slog.Info("notification pass finished",
			"attempted", report.Attempted,
			"delivered", report.Delivered,
			"retried", report.Retried,
			"abandoned", report.Abandoned,
			"duration", duration,
		)
	}

	return report, nil
}

// attempt delivers one in-flight job. It never panics the pass on job errors.
func (q *Queue) attempt(passCtx context.Context, job *Job) attemptResult {
	ctx, cancel := context.WithTimeout(passCtx, q.config.AttemptTimeout)
	defer cancel()

	chatID, err := q.lookup.LookupDestination(ctx, job.DestinationUserID)
	if err != nil {
		if errors.Is(err, ErrDestinationNotConfigured) {
			return attemptResult{outcome: OutcomeAbandoned, err: err}
		}
		if passCtx.Err() != nil {
			return attemptResult{outcome: outcomeInterrupted}
		}
		return q.classify(job, fmt.Errorf("lookup destination: %w", err))
	}

	subject, body, err := q.renderer.Render(job.Payload)
	if err != nil {
		return attemptResult{outcome: OutcomeAbandoned, err: fmt.Errorf("render: %w", err)}
	}

	start := time.Now()
	err = q.sender.Send(ctx, Notification{
		To:      chatID,
		Subject: subject,
		Body:    body,
	})
	recordSendDuration(time.Since(start))

	if err != nil {
		// Only AttemptTimeout counts against the job, not the pass ending.
		if passCtx.Err() != nil {
			return attemptResult{outcome: outcomeInterrupted}
		}
		return q.classify(job, err)
	}

	slog.Debug("notification delivered",
		"job_id", job.ID,
		"user_id", job.DestinationUserID,
		"attempt", job.AttemptCount,
	)
	return attemptResult{outcome: OutcomeDelivered}
}

func (q *Queue) classify(job *Job, err error) attemptResult {
	slog.Warn("send failed",
		"job_id", job.ID,
		"attempt", job.AttemptCount,
		"max_attempts", q.config.MaxAttempts,
		"error", err,
	)

	if !isRetryable(err) {
		return attemptResult{outcome: OutcomeAbandoned, err: err}
	}

	if job.AttemptCount >= q.config.MaxAttempts {
		return attemptResult{outcome: OutcomeAbandoned, err: fmt.Errorf("max attempts exceeded: %w", err)}
	}

	return attemptResult{outcome: OutcomeRetry, err: err}
}

// apply moves the job to the state the attempt result dictates.
func (q *Queue) apply(job *Job, result attemptResult) {
	var next JobState
	switch result.outcome {
	case OutcomeDelivered:
		next = JobStateDelivered
	case OutcomeRetry:
		next = JobStatePending
	case outcomeInterrupted:
		// Undo the claim: the job keeps its previous error and attempt count.
		job.State = JobStatePending
		job.AttemptCount--
		return
	default:
		next = JobStateAbandoned
	}

	if !CanTransition(job.State, next) {
		// Unreachable for claimed jobs; keep the job terminal rather than stuck.
		slog.Error("invalid job transition", "job_id", job.ID, "from", job.State, "to", next)
		next = JobStateAbandoned
	}

	job.State = next
	job.LastError = ""
	if result.err != nil {
		job.LastError = result.err.Error()
	}

	if next == JobStateAbandoned {
		slog.Info("notification abandoned",
			"job_id", job.ID,
			"user_id", job.DestinationUserID,
			"attempts", job.AttemptCount,
			"error", job.LastError,
		)
	}
}
