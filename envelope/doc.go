// Package envelope provides the in-memory message model: one Envelope type
// holding core metadata, optional header sections, a JMS body and property
// maps, plus typed views that narrow an envelope to a JMS, routing or
// subscription message without copying it.
//
// Envelopes are created by a Factory and have a single writer until they
// are marked sent. Snapshot, SnapshotForSend and SnapshotForReceive produce
// independent copies at send and receive boundaries.
//
// Basic usage:
//
//	f := envelope.NewFactory()
//	jms, _ := f.NewJmsMessage(contracts.JmsBodyText)
//	text, _ := jms.AsText()
//	_ = text.SetText("hello")
//	_ = jms.Envelope().SetPriority(4)
package envelope
