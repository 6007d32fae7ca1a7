package stt

import (
	"context"
)

// EventKind tags a recognizer event.
type EventKind int

const (
	// EventRecognizing carries an interim result that may still change.
	EventRecognizing EventKind = iota
	// EventRecognized carries a final result.
	EventRecognized
	// EventCanceled reports a remote cancellation with a code.
	EventCanceled
	// EventSessionStopped reports a server-initiated end of session, e.g. silence timeout.
	EventSessionStopped
)

func (k EventKind) String() string {
	switch k {
	case EventRecognizing:
		return "recognizing"
	case EventRecognized:
		return "recognized"
	case EventCanceled:
		return "canceled"
	case EventSessionStopped:
		return "session_stopped"
	default:
		return "unknown"
	}
}

// CancellationCode is a vendor-neutral cancellation error code.
type CancellationCode string

const (
	CancelNone            CancellationCode = ""
	CancelAuthentication  CancellationCode = "authentication_failure"
	CancelBadRequest      CancellationCode = "bad_request"
	CancelTooManyRequests CancellationCode = "too_many_requests"
	CancelForbidden       CancellationCode = "forbidden"
	CancelConnection      CancellationCode = "connection_failure"
	CancelTimeout         CancellationCode = "service_timeout"
	CancelServiceError    CancellationCode = "service_error"
	CancelRuntime         CancellationCode = "runtime_error"
)

// Result is a recognized transcript fragment.
type Result struct {
	Text string
}

// Event is one message from a continuous recognition session.
type Event struct {
	Kind EventKind
	// Result is set for EventRecognizing and EventRecognized. A nil Result on
	// EventRecognized means the service matched no speech.
	Result  *Result
	Code    CancellationCode
	Details string
}

// Recognizer is a remote continuous-recognition handle. It is owned by exactly
// one session and must be closed once.
type Recognizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start issues the remote start call and returns its outcome.
	Start(ctx context.Context) error
	// Stop issues the remote stop call and returns once it completed.
	Stop(ctx context.Context) error
	// Close releases the handle. Events is closed afterwards.
	Close() error
	// Events delivers results in the order the service reports them.
	Events() <-chan Event
}

// Config contains vendor-agnostic recognition configuration.
type Config struct {
	SessionID       string
	SubscriptionKey string
	Region          string
	Language        string
	Encoding        string
}

// Factory constructs a handle bound to cfg without contacting the service.
type Factory func(cfg Config) (Recognizer, error)
