package rabbitmq

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/reliability"
	"github.com/glimte/mmate-mfp/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ContentType marks AMQP bodies produced by Frame
const ContentType = "application/x-mfp"

// AMQP header names set on every published message
const (
	HeaderKind           = "x-mfp-kind"
	HeaderVersion        = "x-mfp-version"
	HeaderSpecialization = "x-mfp-specialization"
	HeaderRedelivered    = "x-mfp-redelivered"
)

// Publisher is the part of *amqp.Channel the sender needs
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Sender encodes envelopes for one peer protocol version and publishes
// them to an exchange
type Sender struct {
	publisher   Publisher
	codec       *codec.Codec
	exchange    string
	version     codec.ProtocolVersion
	mandatory   bool
	retryPolicy reliability.RetryPolicy
	logger      *slog.Logger
	metrics     metrics.Collector
}

// SenderOption configures a Sender
type SenderOption func(*Sender)

// WithExchange sets the exchange messages are published to
func WithExchange(exchange string) SenderOption {
	return func(s *Sender) {
		s.exchange = exchange
	}
}

// WithProtocolVersion sets the negotiated peer version
func WithProtocolVersion(v codec.ProtocolVersion) SenderOption {
	return func(s *Sender) {
		s.version = v
	}
}

// WithMandatory asks the broker to return unroutable messages
func WithMandatory(mandatory bool) SenderOption {
	return func(s *Sender) {
		s.mandatory = mandatory
	}
}

// WithRetryPolicy sets the policy for failed publishes
func WithRetryPolicy(policy reliability.RetryPolicy) SenderOption {
	return func(s *Sender) {
		if policy != nil {
			s.retryPolicy = policy
		}
	}
}

// WithSenderLogger sets the logger
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSenderMetrics sets the metrics collector
func WithSenderMetrics(collector metrics.Collector) SenderOption {
	return func(s *Sender) {
		if collector != nil {
			s.metrics = collector
		}
	}
}

// NewSender creates a sender publishing through p
func NewSender(p Publisher, c *codec.Codec, opts ...SenderOption) *Sender {
	s := &Sender{
		publisher:   p,
		codec:       c,
		version:     codec.Current,
		retryPolicy: reliability.NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0, 3),
		logger:      slog.Default(),
		metrics:     metrics.NoOp{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send freezes env and publishes a snapshot of it. An empty routingKey
// routes by the destination name of the first forward-path hop.
func (s *Sender) Send(ctx context.Context, env *envelope.Envelope, routingKey string) (err error) {
	start := time.Now()
	defer func() { metrics.Observe(s.metrics, metrics.OpSend, start, err) }()

	if routingKey == "" {
		path := env.GetForwardPath()
		if len(path) == 0 {
			return ErrNoRoutingKey
		}
		routingKey = path[0].DestinationName
	}

	snap, err := env.SnapshotForSend(true)
	if err != nil {
		return err
	}

	slices, err := s.codec.EncodeForTransport(snap, s.version)
	if err != nil {
		s.logger.Error("failed to encode message",
			"messageId", env.GetMessageID(),
			"error", err,
		)
		return err
	}

	msg := s.publishing(snap, slices)
	err = reliability.Retry(ctx, "publish", s.retryPolicy, func() error {
		return s.publisher.PublishWithContext(ctx, s.exchange, routingKey, s.mandatory, false, msg)
	})
	if err != nil {
		s.logger.Error("failed to publish message",
			"messageId", msg.MessageId,
			"exchange", s.exchange,
			"routingKey", routingKey,
			"error", err,
		)
		return &PublishError{
			Exchange:   s.exchange,
			RoutingKey: routingKey,
			MessageID:  msg.MessageId,
			Err:        err,
		}
	}

	s.logger.Debug("message published",
		"messageId", msg.MessageId,
		"kind", snap.GetMessageKind().String(),
		"exchange", s.exchange,
		"routingKey", routingKey,
		"version", s.version.String(),
	)
	return nil
}

// publishing mirrors broker-relevant header fields into AMQP properties
func (s *Sender) publishing(env *envelope.Envelope, slices [][]byte) amqp.Publishing {
	msg := amqp.Publishing{
		ContentType:   ContentType,
		Body:          Frame(slices),
		MessageId:     env.GetMessageID().String(),
		CorrelationId: env.GetCorrelationID(),
		Type:          env.GetJMSType(),
		Headers: amqp.Table{
			HeaderKind:           env.GetMessageKind().String(),
			HeaderVersion:        int32(s.version),
			HeaderSpecialization: env.Specialization().String(),
			HeaderRedelivered:    env.GetRedeliveredCount(),
		},
	}

	switch env.GetPersistence() {
	case contracts.PersistencePersistent:
		msg.DeliveryMode = amqp.Persistent
	case contracts.PersistenceNonPersistent:
		msg.DeliveryMode = amqp.Transient
	}

	if p, ok := env.GetPriority(); ok {
		msg.Priority = uint8(p)
	}
	if ttl, ok := env.GetTimeToLive(); ok && ttl > 0 {
		msg.Expiration = strconv.FormatInt(ttl, 10)
	}
	if ts, ok := env.GetOriginTimestamp(); ok {
		msg.Timestamp = time.UnixMilli(ts)
	}
	if user := env.GetSecurityUserID(); user != "" {
		msg.Headers["x-mfp-user"] = user
	}

	return msg
}
