package codec

import (
	"fmt"
	"time"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/metrics"
)

// EncodeForTransport encodes env for a peer speaking version. Sections and
// fields newer than version are left out. Nothing is returned on failure.
func (c *Codec) EncodeForTransport(env *envelope.Envelope, version ProtocolVersion) (slices [][]byte, err error) {
	const op = "EncodeForTransport"
	start := time.Now()
	defer func() { metrics.Observe(c.metrics, metrics.OpEncode, start, err) }()

	if !version.Valid() {
		return nil, contracts.NewEncodeFailed(op, fmt.Errorf("protocol version %d not supported", byte(version)), op)
	}

	preamble := append(append([]byte(nil), transportMagic...), formatVersion, byte(version))
	slices, err = encode(env, preamble, version)
	if err == nil {
		err = c.checkSize(slices)
	}
	if err != nil {
		return nil, contracts.NewEncodeFailed(op, err, op)
	}
	return slices, nil
}

// DecodeFromTransport rebuilds an envelope from slices produced by
// EncodeForTransport. Slices from a newer writer decode as long as they
// carry no unknown critical content.
func (c *Codec) DecodeFromTransport(slices [][]byte) (env *envelope.Envelope, err error) {
	const op = "DecodeFromTransport"
	start := time.Now()
	defer func() { metrics.Observe(c.metrics, metrics.OpDecode, start, err) }()

	r, version, err := c.readPreamble(slices, transportMagic)
	if err != nil {
		return nil, contracts.NewDecodeFailed(op, err, op)
	}
	if version > Current {
		c.logger.Debug("decoding message from newer protocol",
			"version", version.String(),
			"current", Current.String())
	}

	env, err = c.decodeEnvelope(r, slices[1:])
	if err != nil {
		return nil, contracts.NewDecodeFailed(op, err, op)
	}
	return env, nil
}
