package codec

import (
	"fmt"
	"time"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/metrics"
)

// EncodeForPersistence flattens env for durable storage. The flattened form
// always uses the Current protocol version and records the envelope's
// specialization so Unflatten rebuilds the same view.
func (c *Codec) EncodeForPersistence(env *envelope.Envelope) (slices [][]byte, err error) {
	const op = "EncodeForPersistence"
	start := time.Now()
	defer func() { metrics.Observe(c.metrics, metrics.OpFlatten, start, err) }()

	ordinal, err := contracts.SpecializationOrdinals.MustOrdinal(env.Specialization())
	if err != nil {
		return nil, contracts.NewEncodeFailed(op, err, op)
	}

	preamble := append(append([]byte(nil), persistenceMagic...), formatVersion, byte(Current), ordinal)
	slices, err = encode(env, preamble, Current)
	if err == nil {
		err = c.checkSize(slices)
	}
	if err != nil {
		return nil, contracts.NewEncodeFailed(op, err, op)
	}
	return slices, nil
}

// Unflatten rebuilds an envelope from slices produced by
// EncodeForPersistence. The decoded message must have the recorded
// specialization.
func (c *Codec) Unflatten(slices [][]byte) (env *envelope.Envelope, err error) {
	const op = "Unflatten"
	start := time.Now()
	defer func() { metrics.Observe(c.metrics, metrics.OpUnflatten, start, err) }()

	r, _, err := c.readPreamble(slices, persistenceMagic)
	if err != nil {
		return nil, contracts.NewDecodeFailed(op, err, op)
	}
	want, err := contracts.SpecializationOrdinals.Strict(r.Byte())
	if rerr := r.Err(); rerr != nil {
		err = rerr
	}
	if err != nil {
		return nil, contracts.NewDecodeFailed(op, err, op)
	}

	env, err = c.decodeEnvelope(r, slices[1:])
	if err != nil {
		return nil, contracts.NewDecodeFailed(op, err, op)
	}
	if got := env.Specialization(); got != want {
		return nil, contracts.NewDecodeFailed(op, fmt.Errorf("recorded as %s, decoded as %s", want, got), op)
	}
	return env, nil
}
