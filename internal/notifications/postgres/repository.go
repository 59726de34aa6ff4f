// Package postgres provides PostgreSQL implementation of the notification job store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements notifications.Store using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const jobColumns = `id, destination_user_id, payload, state, attempt_count, last_error, enqueued_at, last_attempt_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*notifications.Job, error) {
	var (
		job       notifications.Job
		payload   []byte
		lastError *string
	)
	if err := row.Scan(
		&job.ID,
		&job.DestinationUserID,
		&payload,
		&job.State,
		&job.AttemptCount,
		&lastError,
		&job.EnqueuedAt,
		&job.LastAttemptAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &job.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of job %s: %w", job.ID, err)
	}
	if lastError != nil {
		job.LastError = *lastError
	}
	return &job, nil
}

// Insert adds a job.
func (r *Repository) Insert(ctx context.Context, job *notifications.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query := `
		INSERT INTO notification_jobs (id, destination_user_id, payload, state, attempt_count, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Exec(ctx, query,
		job.ID,
		job.DestinationUserID,
		payload,
		job.State,
		job.AttemptCount,
		job.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (r *Repository) Get(ctx context.Context, id string) (*notifications.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notifications.ErrJobNotFound
	}

	query := `SELECT ` + jobColumns + ` FROM notification_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notifications.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListPending returns pending jobs oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]*notifications.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM notification_jobs
		WHERE state = 'pending'
		ORDER BY enqueued_at, id
		LIMIT NULLIF($1, 0)
	`
	if limit < 0 {
		limit = 0
	}

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*notifications.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// MarkInFlight claims a pending job.
func (r *Repository) MarkInFlight(ctx context.Context, id string, at time.Time) (*notifications.Job, error) {
	query := `
		UPDATE notification_jobs
		SET state = 'in_flight', attempt_count = attempt_count + 1, last_attempt_at = $2
		WHERE id = $1 AND state = 'pending'
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notifications.ErrJobNotPending
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Save stores state, attempt count and last error of a job.
func (r *Repository) Save(ctx context.Context, job *notifications.Job) error {
	query := `
		UPDATE notification_jobs
		SET state = $2, attempt_count = $3, last_error = NULLIF($4, ''), last_attempt_at = $5
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		job.ID,
		job.State,
		job.AttemptCount,
		job.LastError,
		job.LastAttemptAt,
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrJobNotFound
	}
	return nil
}

// Stats computes queue counters.
func (r *Repository) Stats(ctx context.Context) (notifications.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE state = 'pending'),
			COUNT(*) FILTER (WHERE state = 'in_flight'),
			COUNT(*) FILTER (WHERE state = 'delivered'),
			COUNT(*) FILTER (WHERE last_error IS NOT NULL),
			COUNT(*) FILTER (WHERE state = 'abandoned')
		FROM notification_jobs
	`
	var s notifications.QueueStats
	err := r.db.QueryRow(ctx, query).Scan(
		&s.Pending,
		&s.InFlight,
		&s.Delivered,
		&s.Failed,
		&s.Abandoned,
	)
	if err != nil {
		return notifications.QueueStats{}, fmt.Errorf("get stats: %w", err)
	}
	s.TotalProcessed = s.Delivered + s.Abandoned
	return s, nil
}

// RequeueStale recovers jobs left in flight by an interrupted pass.
func (r *Repository) RequeueStale(ctx context.Context, before time.Time, maxAttempts int) (int64, error) {
	query := `
		UPDATE notification_jobs
		SET
			state = CASE WHEN attempt_count >= $2 THEN 'abandoned' ELSE 'pending' END,
			last_error = CASE WHEN attempt_count >= $2 THEN $3 ELSE last_error END
		WHERE state = 'in_flight' AND COALESCE(last_attempt_at, enqueued_at) < $1
	`
	result, err := r.db.Exec(ctx, query, before, maxAttempts, notifications.AttemptInterruptedMessage)
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteTerminal removes delivered and abandoned jobs inactive since before.
func (r *Repository) DeleteTerminal(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM notification_jobs
		WHERE state IN ('delivered', 'abandoned') AND COALESCE(last_attempt_at, enqueued_at) < $1
	`
	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete terminal jobs: %w", err)
	}
	return result.RowsAffected(), nil
}
