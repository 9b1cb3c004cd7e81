package contracts

import "fmt"

// Reason is a stable reason code recorded in the exception section of a
// message rerouted to an exception destination
type Reason int32

const (
	ReasonNone Reason = 0
	// ReasonDeliveryError is used when no richer reason is known.
	// Inserts: error text.
	ReasonDeliveryError Reason = 1
	// ReasonHandlerFailed: a consumer handler rejected the message.
	// Inserts: destination, error text.
	ReasonHandlerFailed Reason = 2
	// ReasonEncodeFailed inserts: operation.
	ReasonEncodeFailed Reason = 10
	// ReasonDecodeFailed inserts: operation.
	ReasonDecodeFailed Reason = 11
	// ReasonCopyFailed inserts: none.
	ReasonCopyFailed Reason = 12
	// ReasonIncorrectKind inserts: expected kind, actual kind.
	ReasonIncorrectKind Reason = 13
	// ReasonNotSerializable inserts: payload type name.
	ReasonNotSerializable Reason = 14
	// ReasonFrozenEnvelope inserts: operation.
	ReasonFrozenEnvelope Reason = 15
	// ReasonInvalidValue inserts: field, value.
	ReasonInvalidValue Reason = 16
)

var reasonTemplates = map[Reason]string{
	ReasonDeliveryError:   "message could not be delivered: %s",
	ReasonHandlerFailed:   "consumer on %s failed: %s",
	ReasonEncodeFailed:    "message could not be encoded by %s",
	ReasonDecodeFailed:    "message could not be decoded by %s",
	ReasonCopyFailed:      "message could not be copied",
	ReasonIncorrectKind:   "expected a %s message but found %s",
	ReasonNotSerializable: "payload of type %s is not serializable",
	ReasonFrozenEnvelope:  "%s attempted on a sent message",
	ReasonInvalidValue:    "value %[2]s is not valid for %[1]s",
}

// String returns the symbolic name of the reason
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonDeliveryError:
		return "delivery_error"
	case ReasonHandlerFailed:
		return "handler_failed"
	case ReasonEncodeFailed:
		return "encode_failed"
	case ReasonDecodeFailed:
		return "decode_failed"
	case ReasonCopyFailed:
		return "copy_failed"
	case ReasonIncorrectKind:
		return "incorrect_kind"
	case ReasonNotSerializable:
		return "not_serializable"
	case ReasonFrozenEnvelope:
		return "frozen_envelope"
	case ReasonInvalidValue:
		return "invalid_value"
	default:
		return fmt.Sprintf("reason_%d", int32(r))
	}
}

// Format renders the reason's template with the given inserts. Missing
// inserts render as empty strings and unknown reasons list their inserts.
func (r Reason) Format(inserts []string) string {
	tmpl, ok := reasonTemplates[r]
	if !ok {
		return fmt.Sprintf("%s %v", r, inserts)
	}
	n := templateArity(r)
	args := make([]interface{}, n)
	for i := 0; i < n; i++ {
		if i < len(inserts) {
			args[i] = inserts[i]
		} else {
			args[i] = ""
		}
	}
	return fmt.Sprintf(tmpl, args...)
}

func templateArity(r Reason) int {
	switch r {
	case ReasonCopyFailed:
		return 0
	case ReasonHandlerFailed, ReasonIncorrectKind, ReasonInvalidValue:
		return 2
	default:
		return 1
	}
}
