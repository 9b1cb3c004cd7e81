package envelope

import (
	"sync/atomic"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/serialization"
	"github.com/google/uuid"
)

// header is the plain metadata of an envelope. Everything in it compares
// with reflect.DeepEqual; empty slices are always stored as nil.
type header struct {
	messageID     uuid.UUID
	kind          contracts.MessageKind
	producer      contracts.ProducerKind
	phase         contracts.ProtocolPhase
	phaseVersion  byte
	persistence   contracts.PersistenceKind
	priority      opt[int]
	originTS      opt[int64]
	arrivalTS     opt[int64]
	waitTime      int64
	timeToLive    opt[int64]
	deliveryDelay opt[int64]
	forwardPath   []DestinationAddress
	reversePath   []DestinationAddress
	discriminator string
	busName       string
	securityUser  string
	sentBySystem  bool
	correlationID string
	jmsType       string
	redelivered   int32

	guaranteed   *guaranteedSection
	crossBus     *crossBusSection
	remoteBrowse *remoteBrowseSection
	remoteGet    *remoteGetSection
	exception    *exceptionSection
	audit        *auditSection

	routing      *routingPayload
	subscription *subscriptionPayload

	fingerprints opt[[]string]
}

// Envelope is one message: core metadata, optional header sections, a body
// and the user property and system context maps.
//
// An envelope has a single writer until it is marked sent. After that every
// setter fails with a frozen-envelope error and the envelope may be shared
// read-only between goroutines.
type Envelope struct {
	h          header
	body       body
	properties valueMap
	context    valueMap

	serializer serialization.ObjectSerializer
	sent       atomic.Bool
}

func newEnvelope(kind contracts.MessageKind, id uuid.UUID, s serialization.ObjectSerializer) *Envelope {
	e := &Envelope{serializer: s}
	e.h.messageID = id
	e.h.kind = kind
	e.context.allowNil = true
	return e
}

func (e *Envelope) mutable(op string) error {
	if e.sent.Load() {
		return contracts.NewFrozenEnvelope(op)
	}
	return nil
}

// MarkSent freezes the envelope
func (e *Envelope) MarkSent() {
	e.sent.Store(true)
}

// IsSent reports whether the envelope is frozen
func (e *Envelope) IsSent() bool {
	return e.sent.Load()
}

// Specialization reports the concrete shape of the envelope
func (e *Envelope) Specialization() contracts.Specialization {
	switch e.h.kind {
	case contracts.MessageKindJMS:
		return contracts.JmsSpecialization(e.body.kind)
	case contracts.MessageKindRouting:
		return contracts.SpecializationRouting
	case contracts.MessageKindSubscription:
		return contracts.SpecializationSubscription
	default:
		return contracts.SpecializationGeneric
	}
}

// GetMessageID returns the message identifier
func (e *Envelope) GetMessageID() uuid.UUID {
	return e.h.messageID
}

// SetMessageID replaces the message identifier
func (e *Envelope) SetMessageID(id uuid.UUID) error {
	if err := e.mutable("SetMessageID"); err != nil {
		return err
	}
	e.h.messageID = id
	return nil
}

// GetMessageKind returns the message kind
func (e *Envelope) GetMessageKind() contracts.MessageKind {
	return e.h.kind
}

// SetMessageKind changes the message kind. The body and specialized
// payloads are left as they are; an envelope still holding a payload its
// kind does not use cannot be encoded.
func (e *Envelope) SetMessageKind(kind contracts.MessageKind) error {
	if err := e.mutable("SetMessageKind"); err != nil {
		return err
	}
	e.h.kind = kind
	return nil
}

// HasRoutingPayload reports whether routing data was set, whatever the
// current kind
func (e *Envelope) HasRoutingPayload() bool {
	return e.h.routing != nil
}

// HasSubscriptionPayload reports whether subscription data was set,
// whatever the current kind
func (e *Envelope) HasSubscriptionPayload() bool {
	return e.h.subscription != nil
}

// GetProducerKind returns what produced the message
func (e *Envelope) GetProducerKind() contracts.ProducerKind {
	return e.h.producer
}

// SetProducerKind sets what produced the message
func (e *Envelope) SetProducerKind(p contracts.ProducerKind) error {
	if err := e.mutable("SetProducerKind"); err != nil {
		return err
	}
	e.h.producer = p
	return nil
}

// GetProtocolPhase returns the delivery protocol phase and its version
func (e *Envelope) GetProtocolPhase() (contracts.ProtocolPhase, byte) {
	return e.h.phase, e.h.phaseVersion
}

// SetProtocolPhase sets the delivery protocol phase and its version
func (e *Envelope) SetProtocolPhase(phase contracts.ProtocolPhase, version byte) error {
	if err := e.mutable("SetProtocolPhase"); err != nil {
		return err
	}
	e.h.phase = phase
	e.h.phaseVersion = version
	return nil
}

// GetPersistence returns the reliability class
func (e *Envelope) GetPersistence() contracts.PersistenceKind {
	return e.h.persistence
}

// SetPersistence sets the reliability class
func (e *Envelope) SetPersistence(p contracts.PersistenceKind) error {
	if err := e.mutable("SetPersistence"); err != nil {
		return err
	}
	e.h.persistence = p
	return nil
}

// GetPriority returns the priority, if set
func (e *Envelope) GetPriority() (int, bool) {
	return e.h.priority.get()
}

// SetPriority sets the priority. Values outside [0,9] are rejected.
func (e *Envelope) SetPriority(p int) error {
	if err := e.mutable("SetPriority"); err != nil {
		return err
	}
	if !validPriority(p) {
		return contracts.NewInvalidValue("SetPriority", "priority", p)
	}
	e.h.priority = some(p)
	return nil
}

// ClearPriority unsets the priority
func (e *Envelope) ClearPriority() error {
	if err := e.mutable("ClearPriority"); err != nil {
		return err
	}
	e.h.priority = opt[int]{}
	return nil
}

// GetOriginTimestamp returns when the message was produced, in ms since epoch
func (e *Envelope) GetOriginTimestamp() (int64, bool) {
	return e.h.originTS.get()
}

// SetOriginTimestamp sets when the message was produced, in ms since epoch
func (e *Envelope) SetOriginTimestamp(ms int64) error {
	if err := e.mutable("SetOriginTimestamp"); err != nil {
		return err
	}
	e.h.originTS = some(ms)
	return nil
}

// GetArrivalTimestamp returns when the message arrived at this engine
func (e *Envelope) GetArrivalTimestamp() (int64, bool) {
	return e.h.arrivalTS.get()
}

// SetArrivalTimestamp sets when the message arrived at this engine
func (e *Envelope) SetArrivalTimestamp(ms int64) error {
	if err := e.mutable("SetArrivalTimestamp"); err != nil {
		return err
	}
	e.h.arrivalTS = some(ms)
	return nil
}

// GetWaitTime returns the accumulated time spent waiting on queues, in ms
func (e *Envelope) GetWaitTime() int64 {
	return e.h.waitTime
}

// SetWaitTime sets the accumulated wait time
func (e *Envelope) SetWaitTime(ms int64) error {
	if err := e.mutable("SetWaitTime"); err != nil {
		return err
	}
	if ms < 0 {
		return contracts.NewInvalidValue("SetWaitTime", "waitTime", ms)
	}
	e.h.waitTime = ms
	return nil
}

// AddWaitTime adds to the accumulated wait time
func (e *Envelope) AddWaitTime(ms int64) error {
	if err := e.mutable("AddWaitTime"); err != nil {
		return err
	}
	if ms < 0 || e.h.waitTime+ms < e.h.waitTime {
		return contracts.NewInvalidValue("AddWaitTime", "waitTime", ms)
	}
	e.h.waitTime += ms
	return nil
}

// GetTimeToLive returns the time-to-live in ms, if set
func (e *Envelope) GetTimeToLive() (int64, bool) {
	return e.h.timeToLive.get()
}

// SetTimeToLive sets the time-to-live in ms
func (e *Envelope) SetTimeToLive(ms int64) error {
	if err := e.mutable("SetTimeToLive"); err != nil {
		return err
	}
	if !validDuration(ms) {
		return contracts.NewInvalidValue("SetTimeToLive", "timeToLive", ms)
	}
	e.h.timeToLive = some(ms)
	return nil
}

// ClearTimeToLive unsets the time-to-live
func (e *Envelope) ClearTimeToLive() error {
	if err := e.mutable("ClearTimeToLive"); err != nil {
		return err
	}
	e.h.timeToLive = opt[int64]{}
	return nil
}

// GetDeliveryDelay returns the delivery delay in ms, if set
func (e *Envelope) GetDeliveryDelay() (int64, bool) {
	return e.h.deliveryDelay.get()
}

// SetDeliveryDelay sets the delivery delay in ms
func (e *Envelope) SetDeliveryDelay(ms int64) error {
	if err := e.mutable("SetDeliveryDelay"); err != nil {
		return err
	}
	if !validDuration(ms) {
		return contracts.NewInvalidValue("SetDeliveryDelay", "deliveryDelay", ms)
	}
	e.h.deliveryDelay = some(ms)
	return nil
}

// ClearDeliveryDelay unsets the delivery delay
func (e *Envelope) ClearDeliveryDelay() error {
	if err := e.mutable("ClearDeliveryDelay"); err != nil {
		return err
	}
	e.h.deliveryDelay = opt[int64]{}
	return nil
}

// GetForwardPath returns a copy of the forward routing path
func (e *Envelope) GetForwardPath() []DestinationAddress {
	return clonePath(e.h.forwardPath)
}

// SetForwardPath replaces the forward routing path
func (e *Envelope) SetForwardPath(path []DestinationAddress) error {
	if err := e.mutable("SetForwardPath"); err != nil {
		return err
	}
	e.h.forwardPath = clonePath(path)
	return nil
}

// GetReversePath returns a copy of the reverse routing path
func (e *Envelope) GetReversePath() []DestinationAddress {
	return clonePath(e.h.reversePath)
}

// SetReversePath replaces the reverse routing path
func (e *Envelope) SetReversePath(path []DestinationAddress) error {
	if err := e.mutable("SetReversePath"); err != nil {
		return err
	}
	e.h.reversePath = clonePath(path)
	return nil
}

// GetDiscriminator returns the topic discriminator
func (e *Envelope) GetDiscriminator() string {
	return e.h.discriminator
}

// SetDiscriminator sets the topic discriminator
func (e *Envelope) SetDiscriminator(d string) error {
	if err := e.mutable("SetDiscriminator"); err != nil {
		return err
	}
	e.h.discriminator = d
	return nil
}

// GetBusName returns the name of the bus the message was produced on
func (e *Envelope) GetBusName() string {
	return e.h.busName
}

// SetBusName sets the name of the bus the message was produced on
func (e *Envelope) SetBusName(name string) error {
	if err := e.mutable("SetBusName"); err != nil {
		return err
	}
	e.h.busName = name
	return nil
}

// GetSecurityUserID returns the authenticated producer identity
func (e *Envelope) GetSecurityUserID() string {
	return e.h.securityUser
}

// SetSecurityUserID sets the authenticated producer identity
func (e *Envelope) SetSecurityUserID(id string) error {
	if err := e.mutable("SetSecurityUserID"); err != nil {
		return err
	}
	e.h.securityUser = id
	return nil
}

// IsSentBySystem reports whether the security user id was set by the engine
// rather than by the application
func (e *Envelope) IsSentBySystem() bool {
	return e.h.sentBySystem
}

// SetSentBySystem marks the security user id as engine-assigned
func (e *Envelope) SetSentBySystem(v bool) error {
	if err := e.mutable("SetSentBySystem"); err != nil {
		return err
	}
	e.h.sentBySystem = v
	return nil
}

// GetCorrelationID returns the application correlation id
func (e *Envelope) GetCorrelationID() string {
	return e.h.correlationID
}

// SetCorrelationID sets the application correlation id
func (e *Envelope) SetCorrelationID(id string) error {
	if err := e.mutable("SetCorrelationID"); err != nil {
		return err
	}
	e.h.correlationID = id
	return nil
}

// GetJMSType returns the application message type
func (e *Envelope) GetJMSType() string {
	return e.h.jmsType
}

// SetJMSType sets the application message type
func (e *Envelope) SetJMSType(t string) error {
	if err := e.mutable("SetJMSType"); err != nil {
		return err
	}
	e.h.jmsType = t
	return nil
}

// GetRedeliveredCount returns how many times delivery was attempted before
func (e *Envelope) GetRedeliveredCount() int32 {
	return e.h.redelivered
}

// SetRedeliveredCount sets the redelivery count
func (e *Envelope) SetRedeliveredCount(n int32) error {
	if err := e.mutable("SetRedeliveredCount"); err != nil {
		return err
	}
	if n < 0 {
		return contracts.NewInvalidValue("SetRedeliveredCount", "redeliveredCount", n)
	}
	e.h.redelivered = n
	return nil
}

// IncrementRedeliveredCount adds one to the redelivery count
func (e *Envelope) IncrementRedeliveredCount() error {
	return e.SetRedeliveredCount(e.h.redelivered + 1)
}
