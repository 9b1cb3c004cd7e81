package codec

import (
	"fmt"
	"log/slog"

	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/metrics"
)

// formatVersion is the layout version of the preamble and section framing
const formatVersion byte = 1

var (
	transportMagic   = []byte("MFPW")
	persistenceMagic = []byte("MFPF")
)

// Codec encodes envelopes into ordered byte slices for transmission
// between nodes or for durable storage, and decodes them back.
//
// Slice 0 holds a preamble and the core header; every further slice holds
// one header section or the body. A Codec holds no per-message state and is
// safe for concurrent use.
type Codec struct {
	factory       *envelope.Factory
	logger        *slog.Logger
	metrics       metrics.Collector
	maxSliceBytes int
}

// Option configures a Codec
type Option func(*Codec)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m metrics.Collector) Option {
	return func(c *Codec) {
		c.metrics = m
	}
}

// WithMaxSliceBytes bounds the size of every encoded or decoded slice.
// Zero disables the bound.
func WithMaxSliceBytes(n int) Option {
	return func(c *Codec) {
		c.maxSliceBytes = n
	}
}

// New creates a codec. Decoded envelopes are created by factory and use
// its object serializer.
func New(factory *envelope.Factory, opts ...Option) *Codec {
	c := &Codec{
		factory: factory,
		logger:  slog.Default(),
		metrics: metrics.NoOp{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.factory == nil {
		c.factory = envelope.NewFactory()
	}

	return c
}

func (c *Codec) checkSize(slices [][]byte) error {
	if c.maxSliceBytes <= 0 {
		return nil
	}
	for i, s := range slices {
		if len(s) > c.maxSliceBytes {
			return fmt.Errorf("slice %d is %d bytes, limit %d", i, len(s), c.maxSliceBytes)
		}
	}
	return nil
}
