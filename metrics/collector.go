// Package metrics records counts, timings and failures of envelope
// operations: encode, decode, flatten, unflatten, send, receive and reroute.
package metrics

import (
	"errors"
	"time"

	"github.com/glimte/mmate-mfp/contracts"
)

// Operation labels recorded by the codec, transport, store, rerouting and
// handler layers
const (
	OpEncode    = "encode"
	OpDecode    = "decode"
	OpFlatten   = "flatten"
	OpUnflatten = "unflatten"
	OpSend      = "send"
	OpReceive   = "receive"
	OpReroute   = "reroute"
	OpPersist   = "persist"
	OpRecover   = "recover"
	OpHandle    = "handle"
)

// Collector defines the interface for collecting metrics
type Collector interface {
	IncrementMessageCount(operation string)
	RecordProcessingTime(operation string, duration time.Duration)
	IncrementErrorCount(operation string, errorType string)
}

// NoOp discards everything
type NoOp struct{}

func (NoOp) IncrementMessageCount(string) {}

func (NoOp) RecordProcessingTime(string, time.Duration) {}

func (NoOp) IncrementErrorCount(string, string) {}

// Observe records one completed operation: its count, its duration since
// start, and its error type when err is not nil
func Observe(c Collector, operation string, start time.Time, err error) {
	c.IncrementMessageCount(operation)
	c.RecordProcessingTime(operation, time.Since(start))
	if err != nil {
		c.IncrementErrorCount(operation, ErrorType(err))
	}
}

// ErrorType labels err by its failure kind, or "other" for errors outside
// the envelope taxonomy
func ErrorType(err error) string {
	var me *contracts.MessageError
	if errors.As(err, &me) {
		return me.Kind.String()
	}
	return "other"
}
