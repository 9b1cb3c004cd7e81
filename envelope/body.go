package envelope

import (
	"bytes"

	"github.com/glimte/mmate-mfp/contracts"
)

// body is the JMS payload. Only the member selected by kind is used.
type body struct {
	kind   contracts.JmsBodyKind
	data   []byte
	text   opt[string]
	values valueMap
	stream *valueStream
	object *objectPayload
}

func newBody(kind contracts.JmsBodyKind) body {
	b := body{kind: kind}
	switch kind {
	case contracts.JmsBodyStream:
		b.stream = &valueStream{}
	case contracts.JmsBodyObject:
		b.object = &objectPayload{}
	}
	return b
}

func validBodyKind(kind contracts.JmsBodyKind) bool {
	_, ok := contracts.JmsBodyKindOrdinals.Ordinal(kind)
	return ok
}

// GetBodyKind returns the JMS body kind
func (e *Envelope) GetBodyKind() contracts.JmsBodyKind {
	return e.body.kind
}

// SetBodyKind replaces the body with an empty body of the given kind
func (e *Envelope) SetBodyKind(kind contracts.JmsBodyKind) error {
	if err := e.mutable("SetBodyKind"); err != nil {
		return err
	}
	if !validBodyKind(kind) {
		return contracts.NewInvalidValue("SetBodyKind", "bodyKind", kind)
	}
	e.body = newBody(kind)
	return nil
}

// ClearBody empties the body, keeping its kind
func (e *Envelope) ClearBody() error {
	if err := e.mutable("ClearBody"); err != nil {
		return err
	}
	e.body = newBody(e.body.kind)
	return nil
}

// HasBody reports whether the body holds any content
func (e *Envelope) HasBody() bool {
	b := &e.body
	switch b.kind {
	case contracts.JmsBodyBytes:
		return b.data != nil
	case contracts.JmsBodyText:
		return b.text.ok
	case contracts.JmsBodyMap:
		return b.values.len() > 0
	case contracts.JmsBodyStream:
		return len(b.stream.values) > 0
	case contracts.JmsBodyObject:
		_, data := b.object.serialized()
		return data != nil
	default:
		return false
	}
}

func (b *body) clone() (body, error) {
	c := body{kind: b.kind, data: cloneBytes(b.data), text: b.text, values: b.values.clone()}
	if b.stream != nil {
		s, err := b.stream.clone()
		if err != nil {
			return body{}, err
		}
		c.stream = s
	}
	if b.object != nil {
		c.object = b.object.clone()
	}
	return c, nil
}

func (b *body) equal(o *body) bool {
	if b.kind != o.kind {
		return false
	}
	switch b.kind {
	case contracts.JmsBodyBytes:
		return (b.data == nil) == (o.data == nil) && bytes.Equal(b.data, o.data)
	case contracts.JmsBodyText:
		return b.text == o.text
	case contracts.JmsBodyMap:
		return b.values.equal(&o.values)
	case contracts.JmsBodyStream:
		return b.stream.equal(o.stream)
	case contracts.JmsBodyObject:
		return b.object.equal(o.object)
	default:
		return true
	}
}
