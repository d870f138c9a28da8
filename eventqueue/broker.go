package eventqueue

import (
	"context"
	"errors"
)

// Session is an opaque broker session handle, created by Broker.Create
// and released by Broker.Destroy.
type Session interface{}

// Broker is the minimal publish surface the dispatcher needs,
// matching spec.md §6's Broker API: create(endpoint, topic) → session
// | error, publish(session, bytes, topic) → error, destroy(session).
type Broker interface {
	Create(ctx context.Context, endpoint, topic string) (Session, error)
	Publish(ctx context.Context, session Session, topic string, payload []byte) error
	Destroy(session Session)
}

// PublishError wraps a broker-specific error with the two predicates
// the dispatcher needs to classify outcomes, corresponding to the
// original's IS_RETRY and IS_NETWORK_ERROR macros.
type PublishError struct {
	Err     error
	Retry   bool
	Network bool
}

func (e *PublishError) Error() string { return e.Err.Error() }
func (e *PublishError) Unwrap() error { return e.Err }

// IsRetry reports whether err is a recoverable publish failure that
// should be requeued rather than dropped.
func IsRetry(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Retry || pe.Network
	}
	return false
}

// IsNetworkError reports whether err represents a transport-level
// failure (as opposed to a broker-rejected message).
func IsNetworkError(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Network
	}
	return false
}
