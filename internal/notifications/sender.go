package notifications

import "context"

// Notification is a rendered message addressed to one destination.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered notifications through an external transport.
// Errors implementing IsRetryable() bool decide whether the job is retried.
type Sender interface {
	Send(ctx context.Context, notification Notification) error
}

// DestinationLookup resolves a seller to the chat a message is delivered to.
// Returns ErrDestinationNotConfigured if the seller has no usable target.
type DestinationLookup interface {
	LookupDestination(ctx context.Context, userID string) (string, error)
}
