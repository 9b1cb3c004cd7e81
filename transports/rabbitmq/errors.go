package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrConnectionNotReady is returned while no connection is established
	ErrConnectionNotReady = errors.New("rabbitmq: connection not ready")

	// ErrConnectionTimeout is returned when dialing takes too long
	ErrConnectionTimeout = errors.New("rabbitmq: connection timeout")

	// ErrMaxRetriesExceeded is reported when reconnecting gives up
	ErrMaxRetriesExceeded = errors.New("rabbitmq: maximum reconnection attempts exceeded")

	// ErrInvalidFrame marks a delivery body that is not a framed envelope
	ErrInvalidFrame = errors.New("rabbitmq: invalid frame")

	// ErrNoRoutingKey is returned when neither a routing key nor a forward
	// path names the target
	ErrNoRoutingKey = errors.New("rabbitmq: no routing key")
)

// ConnectionError represents a connection-related error
type ConnectionError struct {
	Op        string    // Operation that failed
	URL       string    // Connection URL (sanitized)
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
	Attempts  int       // Number of attempts made
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("rabbitmq connection error: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("rabbitmq connection error: %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// PublishError represents a failed publish of one message
type PublishError struct {
	Exchange   string
	RoutingKey string
	MessageID  string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("rabbitmq publish error: message %s to %s/%s: %v",
		e.MessageID, e.Exchange, e.RoutingKey, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ConsumerError represents a delivery that could not be processed
type ConsumerError struct {
	Queue       string
	DeliveryTag uint64
	Op          string
	Err         error
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("rabbitmq consumer error: %s failed for delivery %d on %s: %v",
		e.Op, e.DeliveryTag, e.Queue, e.Err)
}

func (e *ConsumerError) Unwrap() error {
	return e.Err
}

// SanitizeURL hides the password of an AMQP URL
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
