package contracts

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownOrdinal is returned by strict lookups of an ordinal that no
// constant owns, including reserved ordinals.
var ErrUnknownOrdinal = errors.New("contracts: unknown ordinal")

// Ordinal assignments below are the wire and persisted contract.
// Append only: never renumber an entry and never reuse a reserved ordinal.

// MessageKindOrdinals maps message kinds to their ordinals
var MessageKindOrdinals = NewOrdinalTable("MessageKind",
	[]OrdinalEntry[MessageKind]{
		{0, MessageKindUnknown},
		{1, MessageKindRouting},
		{3, MessageKindJMS},
		{4, MessageKindSubscription},
		{5, MessageKindSDO},
		{6, MessageKindControl},
		{7, MessageKindResponse},
		{8, MessageKindAdmin},
	},
	ReservedOrdinal{2, "retired message kind"},
)

// ProtocolPhaseOrdinals maps protocol phases to their ordinals
var ProtocolPhaseOrdinals = NewOrdinalTable("ProtocolPhase",
	[]OrdinalEntry[ProtocolPhase]{
		{0, ProtocolPhaseUnknown},
		{1, ProtocolPhaseUnicastIn},
		{2, ProtocolPhaseUnicastOut},
		{3, ProtocolPhasePubSubIn},
		{4, ProtocolPhasePubSubOut},
		{5, ProtocolPhaseAnycastIn},
		{6, ProtocolPhaseAnycastOut},
		{7, ProtocolPhaseDurableIn},
		{8, ProtocolPhaseDurableOut},
	},
)

// PersistenceKindOrdinals maps persistence kinds to their ordinals
var PersistenceKindOrdinals = NewOrdinalTable("PersistenceKind",
	[]OrdinalEntry[PersistenceKind]{
		{0, PersistenceUnknown},
		{1, PersistenceNonPersistent},
		{2, PersistencePersistent},
	},
)

// ProducerKindOrdinals maps producer kinds to their ordinals
var ProducerKindOrdinals = NewOrdinalTable("ProducerKind",
	[]OrdinalEntry[ProducerKind]{
		{0, ProducerUnknown},
		{1, ProducerAPI},
		{2, ProducerTargetProtocol},
		{3, ProducerPubSubBridge},
	},
)

// JmsBodyKindOrdinals maps JMS body kinds to their ordinals
var JmsBodyKindOrdinals = NewOrdinalTable("JmsBodyKind",
	[]OrdinalEntry[JmsBodyKind]{
		{0, JmsBodyNull},
		{1, JmsBodyBytes},
		{2, JmsBodyMap},
		{3, JmsBodyObject},
		{4, JmsBodyStream},
		{5, JmsBodyText},
	},
)

// RoutingSubtypeOrdinals maps routing subtypes to their ordinals
var RoutingSubtypeOrdinals = NewOrdinalTable("RoutingSubtype",
	[]OrdinalEntry[RoutingSubtype]{
		{0, RoutingUnknown},
		{1, RoutingRouteData},
		{2, RoutingMEConnectRequest},
		{3, RoutingMEConnectReply},
		{4, RoutingMELinkRequest},
		{5, RoutingMELinkReply},
	},
)

// SubscriptionKindOrdinals maps subscription kinds to their ordinals
var SubscriptionKindOrdinals = NewOrdinalTable("SubscriptionKind",
	[]OrdinalEntry[SubscriptionKind]{
		{0, SubscriptionUnknown},
		{1, SubscriptionCreate},
		{2, SubscriptionDelete},
		{3, SubscriptionReset},
		{4, SubscriptionRequest},
		{5, SubscriptionReply},
	},
)

// SpecializationOrdinals maps specializations to the ordinal recorded in
// the persisted form
var SpecializationOrdinals = NewOrdinalTable("Specialization",
	[]OrdinalEntry[Specialization]{
		{0, SpecializationGeneric},
		{1, SpecializationJmsNull},
		{2, SpecializationJmsBytes},
		{3, SpecializationJmsMap},
		{4, SpecializationJmsObject},
		{5, SpecializationJmsStream},
		{6, SpecializationJmsText},
		{7, SpecializationRouting},
		{8, SpecializationSubscription},
	},
)

// OrdinalEntry binds one constant to its ordinal
type OrdinalEntry[T comparable] struct {
	Ordinal byte
	Value   T
}

// ReservedOrdinal marks an ordinal that was used by a retired constant
type ReservedOrdinal struct {
	Ordinal byte
	Note    string
}

// OrdinalTable is an immutable two-way mapping between constants and ordinals
type OrdinalTable[T comparable] struct {
	name     string
	byOrd    map[byte]T
	byValue  map[T]byte
	reserved map[byte]string
}

// NewOrdinalTable builds a table. It panics when an ordinal or value appears
// twice, or a reserved ordinal is also assigned, since the table is a static
// declaration and such a table can never be valid.
func NewOrdinalTable[T comparable](name string, entries []OrdinalEntry[T], reserved ...ReservedOrdinal) *OrdinalTable[T] {
	t := &OrdinalTable[T]{
		name:     name,
		byOrd:    make(map[byte]T, len(entries)),
		byValue:  make(map[T]byte, len(entries)),
		reserved: make(map[byte]string, len(reserved)),
	}

	for _, r := range reserved {
		if _, dup := t.reserved[r.Ordinal]; dup {
			panic(fmt.Sprintf("contracts: %s reserves ordinal %d twice", name, r.Ordinal))
		}
		t.reserved[r.Ordinal] = r.Note
	}

	for _, e := range entries {
		if _, dup := t.byOrd[e.Ordinal]; dup {
			panic(fmt.Sprintf("contracts: %s assigns ordinal %d twice", name, e.Ordinal))
		}
		if _, dup := t.byValue[e.Value]; dup {
			panic(fmt.Sprintf("contracts: %s assigns %v twice", name, e.Value))
		}
		if _, res := t.reserved[e.Ordinal]; res {
			panic(fmt.Sprintf("contracts: %s assigns reserved ordinal %d", name, e.Ordinal))
		}
		t.byOrd[e.Ordinal] = e.Value
		t.byValue[e.Value] = e.Ordinal
	}

	return t
}

// Name returns the enumeration name
func (t *OrdinalTable[T]) Name() string {
	return t.name
}

// Ordinal returns the ordinal assigned to v
func (t *OrdinalTable[T]) Ordinal(v T) (byte, bool) {
	ord, ok := t.byValue[v]
	return ord, ok
}

// Value returns the constant owning ord. Reserved and unassigned ordinals
// report false.
func (t *OrdinalTable[T]) Value(ord byte) (T, bool) {
	v, ok := t.byOrd[ord]
	return v, ok
}

// MustOrdinal returns the ordinal of v or an ErrUnknownOrdinal error
func (t *OrdinalTable[T]) MustOrdinal(v T) (byte, error) {
	ord, ok := t.byValue[v]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no ordinal for %v", ErrUnknownOrdinal, t.name, v)
	}
	return ord, nil
}

// Strict returns the constant owning ord or an ErrUnknownOrdinal error
func (t *OrdinalTable[T]) Strict(ord byte) (T, error) {
	v, ok := t.byOrd[ord]
	if !ok {
		if note, reserved := t.reserved[ord]; reserved {
			return v, fmt.Errorf("%w: %s ordinal %d is reserved (%s)", ErrUnknownOrdinal, t.name, ord, note)
		}
		return v, fmt.Errorf("%w: %s ordinal %d", ErrUnknownOrdinal, t.name, ord)
	}
	return v, nil
}

// Lenient returns the constant owning ord, or fallback when ord is reserved
// or belongs to a newer writer
func (t *OrdinalTable[T]) Lenient(ord byte, fallback T) T {
	if v, ok := t.byOrd[ord]; ok {
		return v
	}
	return fallback
}

// IsReserved reports whether ord belonged to a retired constant
func (t *OrdinalTable[T]) IsReserved(ord byte) bool {
	_, ok := t.reserved[ord]
	return ok
}

// Entries returns the assigned entries ordered by ordinal
func (t *OrdinalTable[T]) Entries() []OrdinalEntry[T] {
	entries := make([]OrdinalEntry[T], 0, len(t.byOrd))
	for ord, v := range t.byOrd {
		entries = append(entries, OrdinalEntry[T]{Ordinal: ord, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ordinal < entries[j].Ordinal
	})
	return entries
}
