package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/reliability"
	"github.com/glimte/mmate-mfp/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one received message. It owns env and may modify it.
type Handler func(ctx context.Context, env *envelope.Envelope) error

// Consumer is the part of *amqp.Channel the receiver needs to subscribe
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Receiver decodes deliveries from one destination and dispatches them
type Receiver struct {
	codec       *codec.Codec
	destination string
	router      *reliability.ExceptionRouter
	exceptions  *Sender
	logger      *slog.Logger
	metrics     metrics.Collector
	now         func() time.Time
}

// ReceiverOption configures a Receiver
type ReceiverOption func(*Receiver)

// WithExceptionRouting reroutes messages whose handlers fail through router
// and publishes them with sender. Without it failed messages are
// nacked without requeue and left to the broker's dead-letter setup.
func WithExceptionRouting(router *reliability.ExceptionRouter, sender *Sender) ReceiverOption {
	return func(r *Receiver) {
		r.router = router
		r.exceptions = sender
	}
}

// WithReceiverLogger sets the logger
func WithReceiverLogger(logger *slog.Logger) ReceiverOption {
	return func(r *Receiver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReceiverMetrics sets the metrics collector
func WithReceiverMetrics(collector metrics.Collector) ReceiverOption {
	return func(r *Receiver) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

// NewReceiver creates a receiver for messages consumed from destination
func NewReceiver(c *codec.Codec, destination string, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		codec:       c,
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

// Handle processes one delivery. Each handler receives its own copy of the
// decoded message; handlers run in order and the first failure stops the
// rest. The delivery is always settled: acked on success or after a
// successful reroute, rejected when it cannot be decoded, and requeued
// when rerouting fails.
func (r *Receiver) Handle(ctx context.Context, d amqp.Delivery, handlers ...Handler) (err error) {
	start := time.Now()
	defer func() { metrics.Observe(r.metrics, metrics.OpReceive, start, err) }()

	env, err := r.decode(d)
	if err != nil {
		r.logger.Error("rejecting undecodable delivery",
			"queue", r.destination,
			"deliveryTag", d.DeliveryTag,
			"messageId", d.MessageId,
			"error", err,
		)
		r.settle(d, d.Reject(false))
		return &ConsumerError{Queue: r.destination, DeliveryTag: d.DeliveryTag, Op: "decode", Err: err}
	}

	if failure := r.dispatch(ctx, env, handlers); failure != nil {
		return r.fail(ctx, d, env, failure)
	}

	r.settle(d, d.Ack(false))
	return nil
}

func (r *Receiver) decode(d amqp.Delivery) (*envelope.Envelope, error) {
	slices, err := Unframe(d.Body)
	if err != nil {
		return nil, err
	}
	env, err := r.codec.DecodeFromTransport(slices)
	if err != nil {
		return nil, err
	}

	if err := env.SetArrivalTimestamp(r.now().UnixMilli()); err != nil {
		return nil, err
	}
	if d.Redelivered {
		if err := env.IncrementRedeliveredCount(); err != nil {
			return nil, err
		}
	}

	// Handlers only ever see copies.
	env.MarkSent()
	return env, nil
}

func (r *Receiver) dispatch(ctx context.Context, env *envelope.Envelope, handlers []Handler) error {
	for i, handler := range handlers {
		own, err := env.SnapshotForReceive()
		if err != nil {
			return err
		}
		if err := handler(ctx, own); err != nil {
			r.logger.Warn("handler failed",
				"queue", r.destination,
				"messageId", env.GetMessageID(),
				"handler", i,
				"error", err,
			)
			return &reliability.HandlerError{Destination: r.destination, Err: err}
		}
	}
	return nil
}

func (r *Receiver) fail(ctx context.Context, d amqp.Delivery, env *envelope.Envelope, failure error) error {
	if r.router == nil || r.exceptions == nil {
		r.settle(d, d.Nack(false, false))
		return &ConsumerError{Queue: r.destination, DeliveryTag: d.DeliveryTag, Op: "handle", Err: failure}
	}

	rerouted, err := r.router.Reroute(env, failure, r.destination)
	if err == nil {
		err = r.exceptions.Send(ctx, rerouted, r.router.Destination())
	}
	if err != nil {
		r.settle(d, d.Nack(false, true))
		return &ConsumerError{
			Queue:       r.destination,
			DeliveryTag: d.DeliveryTag,
			Op:          "reroute",
			Err:         fmt.Errorf("%w (handler: %v)", err, failure),
		}
	}

	r.settle(d, d.Ack(false))
	return nil
}

func (r *Receiver) settle(d amqp.Delivery, err error) {
	if err != nil {
		r.logger.Error("failed to settle delivery",
			"queue", r.destination,
			"deliveryTag", d.DeliveryTag,
			"error", err,
		)
	}
}

// Consume subscribes to queue and handles deliveries until ctx is done or
// the delivery channel closes.
func (r *Receiver) Consume(ctx context.Context, ch Consumer, queue string, handlers ...Handler) error {
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return &ConsumerError{Queue: queue, Op: "consume", Err: err}
	}

	r.logger.Info("consuming", "queue", queue, "destination", r.destination)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				r.logger.Info("delivery channel closed", "queue", queue)
				return nil
			}
			// Handle settles the delivery and logs; errors only stop
			// this message.
			_ = r.Handle(ctx, d, handlers...)
		}
	}
}
