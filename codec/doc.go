/*
Package codec converts envelopes to and from ordered byte slices.

Two forms share one layout. The transport form is produced for a peer at a
negotiated protocol version; the persistence (flattened) form always uses
the current version and records the envelope's specialization.

	slice 0   magic ("MFPW" or "MFPF"), format version, protocol version,
	          [specialization ordinal, flattened form only],
	          core field mask (uvarint), core fields in bit order
	slice 1.. section id, flags (bit 0: critical), section payload

Sections that hold nothing are not written. A reader skips sections it does
not know unless they are flagged critical, and fails on unknown critical
sections, unknown ordinals in required fields, duplicate sections and
truncated input.

Usage:

	c := codec.New(envelope.NewFactory(), codec.WithLogger(logger))

	v, err := codec.NegotiateVersion(peerVersion)
	if err != nil {
		return err
	}
	slices, err := c.EncodeForTransport(env, v)
*/
package codec
