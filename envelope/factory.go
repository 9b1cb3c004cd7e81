package envelope

import (
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/serialization"
	"github.com/google/uuid"
)

// Factory creates empty envelopes. Object payloads of every envelope it
// creates use the factory's serializer.
type Factory struct {
	serializer serialization.ObjectSerializer
	newID      func() uuid.UUID
	producer   contracts.ProducerKind
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithObjectSerializer sets the serializer used by object payloads
func WithObjectSerializer(s serialization.ObjectSerializer) FactoryOption {
	return func(f *Factory) {
		f.serializer = s
	}
}

// WithIDGenerator sets the message id generator
func WithIDGenerator(gen func() uuid.UUID) FactoryOption {
	return func(f *Factory) {
		f.newID = gen
	}
}

// WithProducerKind sets the producer kind stamped on new envelopes
func WithProducerKind(p contracts.ProducerKind) FactoryOption {
	return func(f *Factory) {
		f.producer = p
	}
}

// NewFactory creates a new envelope factory
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		serializer: serialization.NewJSONObjectSerializer(),
		newID:      uuid.New,
		producer:   contracts.ProducerAPI,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Serializer returns the object serializer
func (f *Factory) Serializer() serialization.ObjectSerializer {
	return f.serializer
}

// New creates an empty envelope of the given kind with a fresh message id
func (f *Factory) New(kind contracts.MessageKind) *Envelope {
	e := newEnvelope(kind, f.newID(), f.serializer)
	e.h.producer = f.producer
	return e
}

// NewJmsMessage creates a JMS envelope with an empty body of the given kind
func (f *Factory) NewJmsMessage(bodyKind contracts.JmsBodyKind) (*JmsView, error) {
	if !validBodyKind(bodyKind) {
		return nil, contracts.NewInvalidValue("NewJmsMessage", "bodyKind", bodyKind)
	}
	e := f.New(contracts.MessageKindJMS)
	e.body = newBody(bodyKind)
	return &JmsView{e: e}, nil
}

// NewRoutingMessage creates a routing envelope of the given subtype
func (f *Factory) NewRoutingMessage(subtype contracts.RoutingSubtype) (*RoutingView, error) {
	if subtype == contracts.RoutingUnknown {
		return nil, contracts.NewInvalidValue("NewRoutingMessage", "routingSubtype", subtype)
	}
	v := &RoutingView{e: f.New(contracts.MessageKindRouting)}
	if err := v.SetSubtype(subtype); err != nil {
		return nil, err
	}
	return v, nil
}

// NewSubscriptionMessage creates a subscription envelope of the given kind
func (f *Factory) NewSubscriptionMessage(kind contracts.SubscriptionKind) (*SubscriptionView, error) {
	if kind == contracts.SubscriptionUnknown {
		return nil, contracts.NewInvalidValue("NewSubscriptionMessage", "subscriptionKind", kind)
	}
	v := &SubscriptionView{e: f.New(contracts.MessageKindSubscription)}
	if err := v.SetKind(kind); err != nil {
		return nil, err
	}
	return v, nil
}
