package reliability

import (
	"errors"
	"fmt"
	"time"

	"github.com/glimte/mmate-mfp/contracts"
)

var (
	// ErrNoCause is returned when a message is rerouted without a failure
	ErrNoCause = errors.New("reroute: no failure cause given")

	// ErrNoExceptionDestination is returned by a router without a destination
	ErrNoExceptionDestination = errors.New("reroute: exception destination not configured")

	// ErrNonRetryable marks an error that must not be retried
	ErrNonRetryable = errors.New("retry: error is not retryable")
)

// RerouteError reports a failed attempt to build the exception copy of a
// message
type RerouteError struct {
	Destination string
	MessageID   string
	Op          string
	Err         error
}

func (e *RerouteError) Error() string {
	return fmt.Sprintf("reroute error: %s failed for message %s to %s: %v",
		e.Op, e.MessageID, e.Destination, e.Err)
}

func (e *RerouteError) Unwrap() error {
	return e.Err
}

// RetryError reports an operation that kept failing
type RetryError struct {
	Op          string
	Attempts    int
	MaxAttempts int
	LastError   error
	Duration    time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry failed: %s after %d/%d attempts over %v: %v",
		e.Op, e.Attempts, e.MaxAttempts, e.Duration.Round(time.Millisecond), e.LastError)
}

func (e *RetryError) Unwrap() error {
	return e.LastError
}

// HandlerError reports a consumer handler that failed on a destination. It
// carries the handler-failed reason unless the wrapped error has a more
// specific one.
type HandlerError struct {
	Destination string
	Err         error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler on %s failed: %v", e.Destination, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Reason implements contracts.Reasoner
func (e *HandlerError) Reason() contracts.Reason {
	return contracts.ReasonHandlerFailed
}

// Inserts implements contracts.Reasoner
func (e *HandlerError) Inserts() []string {
	return []string{e.Destination, fmt.Sprint(e.Err)}
}
