package reliability

import (
	"log/slog"
	"time"

	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/metrics"
)

// ExceptionRouter readdresses failed messages to an exception destination
type ExceptionRouter struct {
	destination string
	busName     string
	logger      *slog.Logger
	metrics     metrics.Collector
	now         func() time.Time
}

// RouterOption configures an ExceptionRouter
type RouterOption func(*ExceptionRouter)

// WithRouterLogger sets the logger
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *ExceptionRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRouterMetrics sets the metrics collector
func WithRouterMetrics(collector metrics.Collector) RouterOption {
	return func(r *ExceptionRouter) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

// WithExceptionBus addresses the exception destination on a foreign bus
func WithExceptionBus(busName string) RouterOption {
	return func(r *ExceptionRouter) {
		r.busName = busName
	}
}

// WithClock replaces the clock used to stamp the exception time
func WithClock(now func() time.Time) RouterOption {
	return func(r *ExceptionRouter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewExceptionRouter creates a router sending to destination
func NewExceptionRouter(destination string, opts ...RouterOption) *ExceptionRouter {
	r := &ExceptionRouter{
		destination: destination,
		logger:      slog.Default(),
		metrics:     metrics.NoOp{},
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Destination returns the exception destination name
func (r *ExceptionRouter) Destination() string {
	return r.destination
}

// Reroute returns a copy of env addressed to the exception destination.
// The copy's exception section records the reason derived from cause, the
// time and problemDestination, and its redelivered count is incremented.
// env itself is not modified and may be frozen.
func (r *ExceptionRouter) Reroute(env *envelope.Envelope, cause error, problemDestination string) (*envelope.Envelope, error) {
	return r.reroute(env, cause, problemDestination, "")
}

// RerouteSubscription is Reroute for a message that failed on a durable
// subscription of problemDestination.
func (r *ExceptionRouter) RerouteSubscription(env *envelope.Envelope, cause error, problemDestination, subscription string) (*envelope.Envelope, error) {
	return r.reroute(env, cause, problemDestination, subscription)
}

func (r *ExceptionRouter) reroute(env *envelope.Envelope, cause error, problemDestination, subscription string) (out *envelope.Envelope, err error) {
	start := time.Now()
	defer func() { metrics.Observe(r.metrics, metrics.OpReroute, start, err) }()

	messageID := env.GetMessageID().String()
	fail := func(op string, err error) (*envelope.Envelope, error) {
		r.logger.Error("failed to reroute message",
			"messageId", messageID,
			"exceptionDestination", r.destination,
			"op", op,
			"error", err,
		)
		return nil, &RerouteError{
			Destination: r.destination,
			MessageID:   messageID,
			Op:          op,
			Err:         err,
		}
	}

	if r.destination == "" {
		return fail("configure", ErrNoExceptionDestination)
	}
	if cause == nil {
		return fail("classify", ErrNoCause)
	}

	out, err = env.SnapshotForReceive()
	if err != nil {
		return fail("copy", err)
	}

	if err = stampException(out, cause, r.now(), problemDestination, subscription); err != nil {
		return fail("stamp", err)
	}

	err = out.SetForwardPath([]envelope.DestinationAddress{{
		DestinationName: r.destination,
		BusName:         r.busName,
	}})
	if err == nil {
		err = out.IncrementRedeliveredCount()
	}
	if err != nil {
		return fail("address", err)
	}

	reason, _ := out.GetExceptionReason()
	r.logger.Warn("rerouting message to exception destination",
		"messageId", messageID,
		"exceptionDestination", r.destination,
		"problemDestination", problemDestination,
		"reason", reason.String(),
		"redeliveredCount", out.GetRedeliveredCount(),
		"error", cause,
	)

	return out, nil
}
