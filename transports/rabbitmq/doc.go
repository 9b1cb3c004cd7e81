// Package rabbitmq carries encoded envelopes over AMQP 0-9-1.
//
// An AMQP message has a single body, so the slices produced by
// codec.EncodeForTransport are packed with Frame and unpacked with Unframe.
// Header fields that brokers understand (delivery mode, priority,
// expiration, message id, correlation id) are mirrored into the AMQP
// properties so routing, queue priorities and TTLs work without decoding.
//
// Sender freezes the envelope it is given and publishes a snapshot.
// Receiver decodes each delivery once and hands every handler its own
// copy. A handler failure reroutes the message to the exception
// destination; undecodable deliveries are rejected without requeue.
package rabbitmq
