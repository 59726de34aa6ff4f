package notifications

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJob               = errors.New("invalid notification job")
	ErrJobNotFound              = errors.New("notification job not found")
	ErrJobNotPending            = errors.New("notification job is not pending")
	ErrDestinationNotConfigured = errors.New("destination not configured")
	ErrStoreUnavailable         = errors.New("job store unavailable")
	ErrQueueClosed              = errors.New("notification queue closed")
)

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// retryClassifier is implemented by sender errors that know whether a later
// attempt can succeed.
type retryClassifier interface {
	IsRetryable() bool
}

// isRetryable reports whether a failed send should go back to pending.
// Errors that do not classify themselves are treated as transient.
func isRetryable(err error) bool {
	var rc retryClassifier
	if errors.As(err, &rc) {
		return rc.IsRetryable()
	}
	return true
}

type classifiedError struct {
	err   error
	retry bool
}

func (e *classifiedError) Error() string     { return e.err.Error() }
func (e *classifiedError) Unwrap() error     { return e.err }
func (e *classifiedError) IsRetryable() bool { return e.retry }

// Transient marks err as worth another attempt.
func Transient(err error) error {
	return &classifiedError{err: err, retry: true}
}

// Permanent marks err as final; the job is abandoned without further attempts.
func Permanent(err error) error {
	return &classifiedError{err: err}
}
