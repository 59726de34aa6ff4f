package orders

import (
	"context"
	"fmt"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/bissquit/sellerdesk/internal/pkg/ctxlog"
)

// ResultStatus describes what happened to an incoming order event.
type ResultStatus string

// Result statuses.
const (
	StatusAccepted ResultStatus = "accepted"
	StatusIgnored  ResultStatus = "ignored"
	StatusSkipped  ResultStatus = "skipped"
	StatusPong     ResultStatus = "pong"
)

// Result is the outcome of handling one order event.
type Result struct {
	Status ResultStatus `json:"status"`
	JobID  string       `json:"job_id,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Enqueuer accepts notification jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *notifications.Job) error
}

// StatusTracker remembers the last notified status of each order.
type StatusTracker interface {
	// Swap stores status and returns the previously stored one, or "" if none.
	Swap(ctx context.Context, userID, orderID, status string) (string, error)
	// Forget drops the stored status.
	Forget(ctx context.Context, userID, orderID string) error
}

// Service turns order events into notification jobs.
type Service struct {
	queue   Enqueuer
	tracker StatusTracker
}

// NewService creates a new orders service. tracker may be nil.
func NewService(queue Enqueuer, tracker StatusTracker) *Service {
	return &Service{queue: queue, tracker: tracker}
}

// HandleEvent decodes a raw order event for the given topic and handles it.
func (s *Service) HandleEvent(ctx context.Context, userID, topic string, body []byte) (*Result, error) {
	var isUpdate bool
	switch topic {
	case TopicOrderCreated:
	case TopicOrderUpdated:
		isUpdate = true
	default:
		return &Result{Status: StatusIgnored, Reason: fmt.Sprintf("unsupported topic %q", topic)}, nil
	}

	order, err := DecodeOrder(body)
	if err != nil {
		return nil, err
	}
	return s.HandleOrderEvent(ctx, userID, order, isUpdate)
}

// HandleOrderEvent enqueues a notification for an order event.
// Updates that do not change the order status are skipped.
func (s *Service) HandleOrderEvent(ctx context.Context, userID string, order domain.Order, isUpdate bool) (*Result, error) {
	log := ctxlog.FromContext(ctx).With("user_id", userID, "order_id", order.ID)

	tracked := false
	if s.tracker != nil {
		prev, err := s.tracker.Swap(ctx, userID, order.ID, string(order.Status))
		if err != nil {
			log.Warn("order status tracker unavailable, notifying anyway", "error", err)
		} else {
			tracked = true
			if isUpdate && prev == string(order.Status) {
				log.Debug("order status unchanged, skipping", "status", order.Status)
				return &Result{Status: StatusSkipped, Reason: "status unchanged"}, nil
			}
		}
	}

	job := notifications.NewJob(userID, notifications.NewOrderPayload(order, isUpdate))
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if tracked {
			if ferr := s.tracker.Forget(ctx, userID, order.ID); ferr != nil {
				log.Warn("failed to reset order status", "error", ferr)
			}
		}
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}

	log.Info("order notification queued", "job_id", job.ID, "status", order.Status, "is_update", isUpdate)
	return &Result{Status: StatusAccepted, JobID: job.ID}, nil
}
