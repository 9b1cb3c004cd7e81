package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glimte/mmate-mfp/internal/reliability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectionManager keeps one AMQP connection open, redialing with backoff
// when the broker closes it
type ConnectionManager struct {
	url         string
	dialTimeout time.Duration
	backoff     *reliability.ExponentialBackoff
	logger      *slog.Logger

	mu          sync.RWMutex
	conn        *amqp.Connection
	notifyClose chan *amqp.Error
	done        chan struct{}
	closed      bool
}

// ConnectionOption configures the ConnectionManager
type ConnectionOption func(*ConnectionManager)

// WithConnectionLogger sets the logger
func WithConnectionLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		if logger != nil {
			cm.logger = logger
		}
	}
}

// WithReconnectBackoff sets the delay policy between redials. MaxAttempts
// of zero or less retries forever.
func WithReconnectBackoff(backoff *reliability.ExponentialBackoff) ConnectionOption {
	return func(cm *ConnectionManager) {
		if backoff != nil {
			cm.backoff = backoff
		}
	}
}

// WithDialTimeout bounds each dial attempt
func WithDialTimeout(timeout time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.dialTimeout = timeout
	}
}

// NewConnectionManager creates a manager for url. Nothing is dialed until
// Connect.
func NewConnectionManager(url string, options ...ConnectionOption) *ConnectionManager {
	cm := &ConnectionManager{
		url:         url,
		dialTimeout: 30 * time.Second,
		backoff:     reliability.NewExponentialBackoff(time.Second, 5*time.Minute, 2.0, 0),
		logger:      slog.Default(),
		done:        make(chan struct{}),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// Connect dials the broker and starts watching the connection
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.conn != nil {
		return nil
	}

	conn, err := cm.dial(ctx)
	if err != nil {
		return &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(cm.url),
			Err:       err,
			Timestamp: time.Now(),
			Attempts:  1,
		}
	}

	cm.attach(conn)
	cm.logger.Info("connected to RabbitMQ", "url", SanitizeURL(cm.url))

	go cm.watch()
	return nil
}

// dial runs amqp.Dial bounded by ctx and the dial timeout
func (cm *ConnectionManager) dial(ctx context.Context) (*amqp.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.dialTimeout)
	defer cancel()

	type result struct {
		conn *amqp.Connection
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := amqp.Dial(cm.url)
		ch <- result{conn, err}
	}()

	select {
	case res := <-ch:
		return res.conn, res.err
	case <-dialCtx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				_ = res.conn.Close()
			}
		}()
		return nil, ErrConnectionTimeout
	}
}

// attach installs conn. Callers hold the write lock.
func (cm *ConnectionManager) attach(conn *amqp.Connection) {
	cm.conn = conn
	cm.notifyClose = conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Channel opens a new channel on the current connection
func (cm *ConnectionManager) Channel() (*amqp.Channel, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.conn == nil || cm.conn.IsClosed() {
		return nil, ErrConnectionNotReady
	}
	return cm.conn.Channel()
}

// IsConnected reports whether a usable connection is held
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn != nil && !cm.conn.IsClosed()
}

// Close stops reconnecting and closes the connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed {
		return nil
	}
	cm.closed = true
	close(cm.done)

	if cm.conn == nil {
		return nil
	}
	err := cm.conn.Close()
	cm.conn = nil
	return err
}

// watch redials after the broker closes the connection
func (cm *ConnectionManager) watch() {
	for {
		cm.mu.RLock()
		notify := cm.notifyClose
		cm.mu.RUnlock()

		select {
		case <-cm.done:
			return
		case amqpErr, ok := <-notify:
			if !ok {
				// Closed by us or cleanly by the broker.
				select {
				case <-cm.done:
					return
				default:
				}
			}
			cm.logger.Error("connection closed", "error", amqpErr)

			cm.mu.Lock()
			cm.conn = nil
			cm.mu.Unlock()

			if !cm.reconnect() {
				return
			}
		}
	}
}

// reconnect redials until it succeeds, gives up or Close is called
func (cm *ConnectionManager) reconnect() bool {
	start := time.Now()

	for attempt := 0; ; attempt++ {
		if cm.backoff.MaxAttempts > 0 && attempt >= cm.backoff.MaxAttempts {
			cm.logger.Error("max reconnection attempts reached",
				"attempts", attempt,
				"duration", time.Since(start),
				"error", ErrMaxRetriesExceeded)
			return false
		}

		if attempt > 0 {
			timer := time.NewTimer(cm.backoff.NextDelay(attempt - 1))
			select {
			case <-timer.C:
			case <-cm.done:
				timer.Stop()
				return false
			}
		}

		cm.logger.Info("attempting to reconnect", "attempt", attempt+1)

		conn, err := cm.dial(context.Background())
		if err != nil {
			cm.logger.Error("reconnection failed", "error", err, "attempt", attempt+1)
			continue
		}

		cm.mu.Lock()
		if cm.closed {
			cm.mu.Unlock()
			_ = conn.Close()
			return false
		}
		cm.attach(conn)
		cm.mu.Unlock()

		cm.logger.Info("reconnected to RabbitMQ",
			"attempts", attempt+1,
			"duration", time.Since(start))
		return true
	}
}
