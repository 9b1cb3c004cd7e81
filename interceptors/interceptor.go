package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/metrics"
	"github.com/glimte/mmate-mfp/transports/rabbitmq"
)

// ErrLoopDetected is returned when a message comes back to a node it
// already visited
var ErrLoopDetected = errors.New("interceptors: message loop detected")

// MessageHandler represents a message handler in the interceptor chain
type MessageHandler interface {
	Handle(ctx context.Context, env *envelope.Envelope) error
}

// MessageHandlerFunc is a function adapter for MessageHandler
type MessageHandlerFunc func(ctx context.Context, env *envelope.Envelope) error

// Handle implements MessageHandler
func (f MessageHandlerFunc) Handle(ctx context.Context, env *envelope.Envelope) error {
	return f(ctx, env)
}

// Interceptor processes messages before they reach the final handler
type Interceptor interface {
	// Intercept processes a message and calls the next handler in the chain
	Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name string
	fn   func(ctx context.Context, env *envelope.Envelope, next MessageHandler) error
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, fn func(ctx context.Context, env *envelope.Envelope, next MessageHandler) error) *InterceptorFunc {
	return &InterceptorFunc{name: name, fn: fn}
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	return i.fn(ctx, env, next)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// InterceptorChain manages a chain of interceptors
type InterceptorChain struct {
	interceptors []Interceptor
	logger       *slog.Logger
}

// NewInterceptorChain creates a new interceptor chain
func NewInterceptorChain(logger *slog.Logger) *InterceptorChain {
	if logger == nil {
		logger = slog.Default()
	}

	return &InterceptorChain{
		interceptors: make([]Interceptor, 0),
		logger:       logger,
	}
}

// Add adds an interceptor to the chain
func (c *InterceptorChain) Add(interceptor Interceptor) *InterceptorChain {
	c.interceptors = append(c.interceptors, interceptor)
	return c
}

// Names lists the interceptors in execution order
func (c *InterceptorChain) Names() []string {
	names := make([]string, len(c.interceptors))
	for i, interceptor := range c.interceptors {
		names[i] = interceptor.Name()
	}
	return names
}

// Execute executes the interceptor chain
func (c *InterceptorChain) Execute(ctx context.Context, env *envelope.Envelope, finalHandler MessageHandler) error {
	if len(c.interceptors) == 0 {
		return finalHandler.Handle(ctx, env)
	}

	// Build the chain in reverse order
	handler := finalHandler
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		currentHandler := handler
		handler = MessageHandlerFunc(func(ctx context.Context, env *envelope.Envelope) error {
			return interceptor.Intercept(ctx, env, currentHandler)
		})
	}

	return handler.Handle(ctx, env)
}

// Handler adapts the chain and finalHandler into a receiver handler
func (c *InterceptorChain) Handler(finalHandler MessageHandler) rabbitmq.Handler {
	c.logger.Debug("interceptor chain built", "interceptors", c.Names())
	return func(ctx context.Context, env *envelope.Envelope) error {
		return c.Execute(ctx, env, finalHandler)
	}
}

// Built-in interceptors

// LoggingInterceptor logs message processing
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{logger: logger}
}

// Intercept implements Interceptor
func (i *LoggingInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	start := time.Now()

	i.logger.Info("processing message",
		"messageId", env.GetMessageID(),
		"specialization", env.Specialization().String(),
		"correlationId", env.GetCorrelationID(),
	)

	err := next.Handle(ctx, env)
	duration := time.Since(start)

	if err != nil {
		i.logger.Error("message processing failed",
			"messageId", env.GetMessageID(),
			"specialization", env.Specialization().String(),
			"duration", duration,
			"error", err,
		)
	} else {
		i.logger.Info("message processed successfully",
			"messageId", env.GetMessageID(),
			"specialization", env.Specialization().String(),
			"duration", duration,
		)
	}

	return err
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// MetricsInterceptor records handler outcomes under metrics.OpHandle
type MetricsInterceptor struct {
	collector metrics.Collector
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(collector metrics.Collector) *MetricsInterceptor {
	return &MetricsInterceptor{collector: collector}
}

// Intercept implements Interceptor
func (i *MetricsInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) (err error) {
	start := time.Now()
	defer func() { metrics.Observe(i.collector, metrics.OpHandle, start, err) }()

	return next.Handle(ctx, env)
}

// Name implements Interceptor
func (i *MetricsInterceptor) Name() string {
	return "MetricsInterceptor"
}

// LoopDetectionInterceptor stamps nodeID into the fingerprint list of every
// message it passes on, and stops messages that already carry it.
//
// The stamp is written to the envelope handed to Intercept. Behind a
// Receiver that is the handler's own SnapshotForReceive copy, not the
// delivered message, so a handler that forwards the message must send the
// envelope it was given for the stamp to travel with it.
type LoopDetectionInterceptor struct {
	nodeID string
}

// NewLoopDetectionInterceptor creates a loop detector for nodeID
func NewLoopDetectionInterceptor(nodeID string) *LoopDetectionInterceptor {
	return &LoopDetectionInterceptor{nodeID: nodeID}
}

// Intercept implements Interceptor
func (i *LoopDetectionInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	if env.HasVisited(i.nodeID) {
		path, _ := env.Fingerprints()
		return fmt.Errorf("%w: %s already visited %v", ErrLoopDetected, i.nodeID, path)
	}
	if err := env.AddFingerprint(i.nodeID); err != nil {
		return err
	}
	return next.Handle(ctx, env)
}

// Name implements Interceptor
func (i *LoopDetectionInterceptor) Name() string {
	return "LoopDetectionInterceptor"
}

// TimeoutInterceptor adds timeout handling to message processing
type TimeoutInterceptor struct {
	timeout time.Duration
}

// NewTimeoutInterceptor creates a new timeout interceptor
func NewTimeoutInterceptor(timeout time.Duration) *TimeoutInterceptor {
	return &TimeoutInterceptor{timeout: timeout}
}

// Intercept implements Interceptor. The handler keeps running in the
// background after a timeout; it sees a cancelled context.
func (i *TimeoutInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- next.Handle(ctx, env)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("message %s processing timeout after %v: %w", env.GetMessageID(), i.timeout, ctx.Err())
	}
}

// Name implements Interceptor
func (i *TimeoutInterceptor) Name() string {
	return "TimeoutInterceptor"
}

// MessageValidator checks a message before it is handled
type MessageValidator interface {
	Validate(env *envelope.Envelope) error
}

// MessageValidatorFunc is a function adapter for MessageValidator
type MessageValidatorFunc func(env *envelope.Envelope) error

// Validate implements MessageValidator
func (f MessageValidatorFunc) Validate(env *envelope.Envelope) error {
	return f(env)
}

// ValidationInterceptor validates messages before processing
type ValidationInterceptor struct {
	validator MessageValidator
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(validator MessageValidator) *ValidationInterceptor {
	return &ValidationInterceptor{validator: validator}
}

// Intercept implements Interceptor
func (i *ValidationInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	if err := i.validator.Validate(env); err != nil {
		return fmt.Errorf("message validation failed: %w", err)
	}
	return next.Handle(ctx, env)
}

// Name implements Interceptor
func (i *ValidationInterceptor) Name() string {
	return "ValidationInterceptor"
}
