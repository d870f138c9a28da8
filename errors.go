package basecache

import (
	"errors"
	"fmt"
)

/*
errors.go implements the error taxonomy of the cache controller.

DESIGN

Modeled on the apperror package's (Code, Error, Option) shape: a small
closed set of codes, a struct carrying an internal message plus
optional structured fields, and functional options to attach those
fields without growing the constructor signature. Unlike a generic
application-error package, every field here is specific to what the
cache controller needs to report: average wait time, whether a
deadline was already reached, the offending slot index.
*/

// Code enumerates the error kinds the cache controller can return.
type Code int

const (
	// CodeBusy is soft-retryable: capacity exhausted, or the deadline
	// was reached without a real attempt.
	CodeBusy Code = iota

	// CodeUnavailable means no idle base could be evicted to make room.
	CodeUnavailable

	// CodeTimeout means the caller already owned the slot but its
	// deadline passed before it released it.
	CodeTimeout

	// CodeExcessiveLoad means sustained high latency was proven by the
	// slot's rolling counters.
	CodeExcessiveLoad

	// CodeContainerNotFound means the slot is closing for deletion.
	CodeContainerNotFound

	// CodeInternalError marks a programming error: invalid slot id,
	// releasing a slot that isn't USED, etc. Implementations should
	// fail loudly on this one.
	CodeInternalError
)

func (c Code) String() string {
	switch c {
	case CodeBusy:
		return "BUSY"
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeTimeout:
		return "TIMEOUT"
	case CodeExcessiveLoad:
		return "EXCESSIVE_LOAD"
	case CodeContainerNotFound:
		return "CONTAINER_NOTFOUND"
	case CodeInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the structured error type returned by every cache
// controller operation that can fail.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// AvgWaitTime is set only on CodeExcessiveLoad: the average wait
	// time (seconds) the overload predicate computed.
	AvgWaitTime float64

	// DeadlineReached is set only on CodeExcessiveLoad: whether the
	// overload was detected because the caller's own deadline had
	// already passed (true) or preemptively while still waiting
	// (false).
	DeadlineReached bool

	// SlotIndex identifies the slot involved, when known; -1 otherwise.
	SlotIndex int
}

func (e *Error) Error() string {
	if e.Code == CodeExcessiveLoad {
		return fmt.Sprintf("%s: %s (avg_waiting_time=%.6f, deadline_reached=%v)",
			e.Code, e.Message, e.AvgWaitTime, e.DeadlineReached)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports equality by Code, matching apperror's convention of
// comparing error taxonomy by code rather than by identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ErrOption customizes an *Error built by New.
type ErrOption func(*Error)

func WithCause(err error) ErrOption {
	return func(e *Error) { e.Cause = err }
}

func WithAvgWaitTime(seconds float64, deadlineReached bool) ErrOption {
	return func(e *Error) {
		e.AvgWaitTime = seconds
		e.DeadlineReached = deadlineReached
	}
}

func WithSlotIndex(index int) ErrOption {
	return func(e *Error) { e.SlotIndex = index }
}

// New builds a new *Error with the given code and message.
func New(code Code, message string, opts ...ErrOption) *Error {
	e := &Error{Code: code, Message: message, SlotIndex: -1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func busy(message string) error                 { return New(CodeBusy, message) }
func unavailable(message string) error           { return New(CodeUnavailable, message) }
func timeoutErr(message string) error            { return New(CodeTimeout, message) }
func containerNotFound(message string) error     { return New(CodeContainerNotFound, message) }
func internalError(message string) error         { return New(CodeInternalError, message) }
func excessiveLoad(avg float64, reached bool) error {
	return New(CodeExcessiveLoad, "Load too high", WithAvgWaitTime(avg, reached))
}

// CodeOf extracts the Code carried by err, or CodeInternalError if err
// does not wrap an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code && err != nil
}
