// Package contracts provides the enumerations and failure taxonomy shared by
// every part of the mmate message envelope.
//
// This package defines:
//   - Closed enumerations: MessageKind, ProtocolPhase, PersistenceKind,
//     ProducerKind, JmsBodyKind, RoutingSubtype, SubscriptionKind, Specialization
//   - OrdinalTable: the append-only mapping from each constant to the small
//     integer used on the wire and in persisted form
//   - MessageError and Reason: structured failures carrying a reason code and
//     inserts for rerouting a message to an exception destination
//
// Ordinals are a compatibility contract between messaging engines of
// different versions. They are declared once, in ordinals.go, and retired
// ordinals stay reserved so a historical value never takes a new meaning.
package contracts
