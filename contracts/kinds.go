package contracts

// MessageKind identifies the broad family of an envelope. The wire and
// persisted ordinal of each kind lives in MessageKindOrdinals, not here.
type MessageKind uint8

const (
	MessageKindUnknown MessageKind = iota
	MessageKindRouting
	MessageKindJMS
	MessageKindSubscription
	MessageKindSDO
	MessageKindControl
	MessageKindResponse
	MessageKindAdmin
)

// String returns the protocol name of the kind
func (k MessageKind) String() string {
	switch k {
	case MessageKindRouting:
		return "ROUTING"
	case MessageKindJMS:
		return "JMS"
	case MessageKindSubscription:
		return "SUBSCRIPTION"
	case MessageKindSDO:
		return "SDO"
	case MessageKindControl:
		return "CTRL"
	case MessageKindResponse:
		return "RESPONSE"
	case MessageKindAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// ProtocolPhase identifies which half of which delivery protocol a message
// belongs to (unicast, pub/sub, anycast or durable; inbound or outbound).
type ProtocolPhase uint8

const (
	ProtocolPhaseUnknown ProtocolPhase = iota
	ProtocolPhaseUnicastIn
	ProtocolPhaseUnicastOut
	ProtocolPhasePubSubIn
	ProtocolPhasePubSubOut
	ProtocolPhaseAnycastIn
	ProtocolPhaseAnycastOut
	ProtocolPhaseDurableIn
	ProtocolPhaseDurableOut
)

// String returns the protocol name of the phase
func (p ProtocolPhase) String() string {
	switch p {
	case ProtocolPhaseUnicastIn:
		return "UNI_IN"
	case ProtocolPhaseUnicastOut:
		return "UNI_OUT"
	case ProtocolPhasePubSubIn:
		return "PUBSUB_IN"
	case ProtocolPhasePubSubOut:
		return "PUBSUB_OUT"
	case ProtocolPhaseAnycastIn:
		return "ANY_IN"
	case ProtocolPhaseAnycastOut:
		return "ANY_OUT"
	case ProtocolPhaseDurableIn:
		return "DUR_IN"
	case ProtocolPhaseDurableOut:
		return "DUR_OUT"
	default:
		return "UNKNOWN"
	}
}

// PersistenceKind describes the reliability class of a message
type PersistenceKind uint8

const (
	PersistenceUnknown PersistenceKind = iota
	PersistenceNonPersistent
	PersistencePersistent
)

// String returns the protocol name of the persistence kind
func (p PersistenceKind) String() string {
	switch p {
	case PersistenceNonPersistent:
		return "NON_PERSISTENT"
	case PersistencePersistent:
		return "PERSISTENT"
	default:
		return "UNKNOWN"
	}
}

// ProducerKind identifies what created a message
type ProducerKind uint8

const (
	ProducerUnknown ProducerKind = iota
	// ProducerAPI is an application producer
	ProducerAPI
	// ProducerTargetProtocol is the messaging engine's own delivery protocol
	ProducerTargetProtocol
	// ProducerPubSubBridge is a pub/sub bridge forwarding between buses
	ProducerPubSubBridge
)

// String returns the protocol name of the producer kind
func (p ProducerKind) String() string {
	switch p {
	case ProducerAPI:
		return "API"
	case ProducerTargetProtocol:
		return "TP"
	case ProducerPubSubBridge:
		return "PSB"
	default:
		return "UNKNOWN"
	}
}

// JmsBodyKind selects the payload variant of a JMS message
type JmsBodyKind uint8

const (
	JmsBodyNull JmsBodyKind = iota
	JmsBodyBytes
	JmsBodyMap
	JmsBodyObject
	JmsBodyStream
	JmsBodyText
)

// String returns the protocol name of the body kind
func (b JmsBodyKind) String() string {
	switch b {
	case JmsBodyNull:
		return "NULL"
	case JmsBodyBytes:
		return "BYTES"
	case JmsBodyMap:
		return "MAP"
	case JmsBodyObject:
		return "OBJECT"
	case JmsBodyStream:
		return "STREAM"
	case JmsBodyText:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

// RoutingSubtype selects the content of a topology-routing message
type RoutingSubtype uint8

const (
	RoutingUnknown RoutingSubtype = iota
	RoutingRouteData
	RoutingMEConnectRequest
	RoutingMEConnectReply
	RoutingMELinkRequest
	RoutingMELinkReply
)

// String returns the protocol name of the routing subtype
func (r RoutingSubtype) String() string {
	switch r {
	case RoutingRouteData:
		return "ROUTE_DATA"
	case RoutingMEConnectRequest:
		return "ME_CONNECT_REQUEST"
	case RoutingMEConnectReply:
		return "ME_CONNECT_REPLY"
	case RoutingMELinkRequest:
		return "ME_LINK_REQUEST"
	case RoutingMELinkReply:
		return "ME_LINK_REPLY"
	default:
		return "UNKNOWN"
	}
}

// SubscriptionKind selects the operation carried by a subscription-propagation message
type SubscriptionKind uint8

const (
	SubscriptionUnknown SubscriptionKind = iota
	SubscriptionCreate
	SubscriptionDelete
	SubscriptionReset
	SubscriptionRequest
	SubscriptionReply
)

// String returns the protocol name of the subscription kind
func (s SubscriptionKind) String() string {
	switch s {
	case SubscriptionCreate:
		return "CREATE"
	case SubscriptionDelete:
		return "DELETE"
	case SubscriptionReset:
		return "RESET"
	case SubscriptionRequest:
		return "REQUEST"
	case SubscriptionReply:
		return "REPLY"
	default:
		return "UNKNOWN"
	}
}

// Specialization names the concrete shape of an envelope. It is recorded in
// the persisted form so that reading it back rebuilds the same view.
type Specialization uint8

const (
	SpecializationGeneric Specialization = iota
	SpecializationJmsNull
	SpecializationJmsBytes
	SpecializationJmsMap
	SpecializationJmsObject
	SpecializationJmsStream
	SpecializationJmsText
	SpecializationRouting
	SpecializationSubscription
)

// String returns the name of the specialization
func (s Specialization) String() string {
	switch s {
	case SpecializationJmsNull:
		return "JMS_NULL"
	case SpecializationJmsBytes:
		return "JMS_BYTES"
	case SpecializationJmsMap:
		return "JMS_MAP"
	case SpecializationJmsObject:
		return "JMS_OBJECT"
	case SpecializationJmsStream:
		return "JMS_STREAM"
	case SpecializationJmsText:
		return "JMS_TEXT"
	case SpecializationRouting:
		return "ROUTING"
	case SpecializationSubscription:
		return "SUBSCRIPTION"
	default:
		return "GENERIC"
	}
}

// JmsSpecialization maps a JMS body kind to its specialization
func JmsSpecialization(body JmsBodyKind) Specialization {
	switch body {
	case JmsBodyBytes:
		return SpecializationJmsBytes
	case JmsBodyMap:
		return SpecializationJmsMap
	case JmsBodyObject:
		return SpecializationJmsObject
	case JmsBodyStream:
		return SpecializationJmsStream
	case JmsBodyText:
		return SpecializationJmsText
	default:
		return SpecializationJmsNull
	}
}

// MessageKind returns the message kind every envelope of this
// specialization must carry. Generic envelopes may carry any kind.
func (s Specialization) MessageKind() (MessageKind, bool) {
	switch s {
	case SpecializationJmsNull, SpecializationJmsBytes, SpecializationJmsMap,
		SpecializationJmsObject, SpecializationJmsStream, SpecializationJmsText:
		return MessageKindJMS, true
	case SpecializationRouting:
		return MessageKindRouting, true
	case SpecializationSubscription:
		return MessageKindSubscription, true
	default:
		return MessageKindUnknown, false
	}
}
