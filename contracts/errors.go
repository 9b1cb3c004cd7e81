package contracts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEncodeFailed marks an envelope that could not be encoded or flattened
	ErrEncodeFailed = errors.New("mfp: encode failed")
	// ErrDecodeFailed marks bytes that could not be decoded into an envelope
	ErrDecodeFailed = errors.New("mfp: decode failed")
	// ErrCopyFailed marks a snapshot that could not be taken
	ErrCopyFailed = errors.New("mfp: copy failed")
	// ErrIncorrectKind marks a view requested for the wrong message or body kind
	ErrIncorrectKind = errors.New("mfp: incorrect message kind")
	// ErrSerialization marks a payload that could not be serialized or materialized
	ErrSerialization = errors.New("mfp: serialization failed")
	// ErrFrozenEnvelope marks a mutation attempted on a sent envelope
	ErrFrozenEnvelope = errors.New("mfp: envelope is frozen")
	// ErrInvalidValue marks a value rejected at the envelope boundary
	ErrInvalidValue = errors.New("mfp: invalid value")
)

// FailureKind classifies envelope-layer failures
type FailureKind int

const (
	FailureEncode FailureKind = iota + 1
	FailureDecode
	FailureCopy
	FailureIncorrectKind
	FailureSerialization
	FailureFrozenEnvelope
	FailureInvalidValue
)

// String returns the name of the failure kind
func (k FailureKind) String() string {
	switch k {
	case FailureEncode:
		return "encode_failed"
	case FailureDecode:
		return "decode_failed"
	case FailureCopy:
		return "copy_failed"
	case FailureIncorrectKind:
		return "incorrect_kind"
	case FailureSerialization:
		return "serialization"
	case FailureFrozenEnvelope:
		return "frozen_envelope"
	case FailureInvalidValue:
		return "invalid_value"
	default:
		return "unknown"
	}
}

func (k FailureKind) sentinel() error {
	switch k {
	case FailureEncode:
		return ErrEncodeFailed
	case FailureDecode:
		return ErrDecodeFailed
	case FailureCopy:
		return ErrCopyFailed
	case FailureIncorrectKind:
		return ErrIncorrectKind
	case FailureSerialization:
		return ErrSerialization
	case FailureFrozenEnvelope:
		return ErrFrozenEnvelope
	case FailureInvalidValue:
		return ErrInvalidValue
	default:
		return nil
	}
}

func (k FailureKind) reason() Reason {
	switch k {
	case FailureEncode:
		return ReasonEncodeFailed
	case FailureDecode:
		return ReasonDecodeFailed
	case FailureCopy:
		return ReasonCopyFailed
	case FailureIncorrectKind:
		return ReasonIncorrectKind
	case FailureSerialization:
		return ReasonNotSerializable
	case FailureFrozenEnvelope:
		return ReasonFrozenEnvelope
	case FailureInvalidValue:
		return ReasonInvalidValue
	default:
		return ReasonDeliveryError
	}
}

// Reasoner is implemented by errors that carry a reason code and the
// inserts used to format the reason's message template
type Reasoner interface {
	Reason() Reason
	Inserts() []string
}

// MessageError is the structured error returned by every envelope-layer operation
type MessageError struct {
	Kind     FailureKind // Failure classification
	Op       string      // Operation that failed
	Code     Reason      // Reason code used when no wrapped error carries one
	Params   []string    // Inserts used when no wrapped error carries them
	Expected string      // Expected kind, for FailureIncorrectKind
	Actual   string      // Actual kind, for FailureIncorrectKind
	Err      error       // Underlying error
}

func (e *MessageError) Error() string {
	var b strings.Builder
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("mfp: failure")
	}
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, ": expected %s, got %s", e.Expected, e.Actual)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *MessageError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Reason returns the reason of the innermost wrapped Reasoner, or the
// error's own code when nothing richer is wrapped
func (e *MessageError) Reason() Reason {
	if inner := innermostReasoner(e.Err); inner != nil {
		return inner.Reason()
	}
	return e.Code
}

// Inserts returns the inserts of the innermost wrapped Reasoner, or the
// error's own parameters
func (e *MessageError) Inserts() []string {
	if inner := innermostReasoner(e.Err); inner != nil {
		return inner.Inserts()
	}
	return append([]string(nil), e.Params...)
}

// Fatal reports whether the failure must not be retried for the same message
func (e *MessageError) Fatal() bool {
	switch e.Kind {
	case FailureEncode, FailureDecode, FailureCopy, FailureFrozenEnvelope:
		return true
	default:
		return false
	}
}

func innermostReasoner(err error) Reasoner {
	var found Reasoner
	for err != nil {
		if r, ok := err.(Reasoner); ok {
			found = r
		}
		err = errors.Unwrap(err)
	}
	return found
}

// ReasonOf returns the reason code and inserts for any error, delegating to
// the innermost Reasoner in its chain and falling back to the default
// delivery-error reason with the error text as the only insert
func ReasonOf(err error) (Reason, []string) {
	if err == nil {
		return ReasonNone, nil
	}
	if r := innermostReasoner(err); r != nil {
		return r.Reason(), r.Inserts()
	}
	return ReasonDeliveryError, []string{err.Error()}
}

// IsFatal reports whether err is an envelope-layer failure that must not be
// retried for the same message
func IsFatal(err error) bool {
	var me *MessageError
	if errors.As(err, &me) {
		return me.Fatal()
	}
	return false
}

func newError(kind FailureKind, op string, err error, params ...string) *MessageError {
	return &MessageError{
		Kind:   kind,
		Op:     op,
		Code:   kind.reason(),
		Params: params,
		Err:    err,
	}
}

// NewEncodeFailed reports an envelope that cannot be encoded
func NewEncodeFailed(op string, err error, inserts ...string) *MessageError {
	return newError(FailureEncode, op, err, inserts...)
}

// NewDecodeFailed reports bytes that cannot be decoded
func NewDecodeFailed(op string, err error, inserts ...string) *MessageError {
	return newError(FailureDecode, op, err, inserts...)
}

// NewCopyFailed reports a snapshot that cannot be taken
func NewCopyFailed(op string, err error) *MessageError {
	return newError(FailureCopy, op, err)
}

// NewSerializationError reports a payload of typeName that cannot be
// serialized or materialized
func NewSerializationError(op, typeName string, err error) *MessageError {
	return newError(FailureSerialization, op, err, typeName)
}

// NewFrozenEnvelope reports a mutation of a sent envelope
func NewFrozenEnvelope(op string) *MessageError {
	return newError(FailureFrozenEnvelope, op, nil, op)
}

// NewInvalidValue reports a value rejected at the envelope boundary
func NewInvalidValue(op, field string, value interface{}) *MessageError {
	return newError(FailureInvalidValue, op, fmt.Errorf("%s out of range: %v", field, value), field, fmt.Sprint(value))
}

// NewIncorrectKind reports a view requested for the wrong kind
func NewIncorrectKind(op string, expected, actual fmt.Stringer) *MessageError {
	e := newError(FailureIncorrectKind, op, nil, expected.String(), actual.String())
	e.Expected = expected.String()
	e.Actual = actual.String()
	return e
}
