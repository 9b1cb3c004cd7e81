package envelope

import (
	"bytes"
	"errors"
	"sync"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/serialization"
)

var errNoSerializer = errors.New("no object serializer configured")

// objectPayload holds a serialized object and its lazily materialized form.
// The cache is guarded so frozen envelopes can be read concurrently.
type objectPayload struct {
	typeName string
	data     []byte

	mu           sync.Mutex
	cached       interface{}
	materialized bool
}

func (o *objectPayload) setSerialized(typeName string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typeName = typeName
	o.data = cloneBytes(data)
	o.cached = nil
	o.materialized = false
}

func (o *objectPayload) set(op string, s serialization.ObjectSerializer, v interface{}) error {
	if v == nil {
		o.setSerialized("", nil)
		return nil
	}
	if s == nil {
		return contracts.NewSerializationError(op, "", errNoSerializer)
	}
	typeName, data, err := s.Serialize(v)
	if err != nil {
		return contracts.NewSerializationError(op, typeName, err)
	}
	o.setSerialized(typeName, data)
	return nil
}

func (o *objectPayload) get(op string, s serialization.ObjectSerializer) (interface{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.data == nil {
		return nil, nil
	}
	if o.materialized {
		return o.cached, nil
	}
	if s == nil {
		return nil, contracts.NewSerializationError(op, o.typeName, errNoSerializer)
	}
	v, err := s.Materialize(o.typeName, o.data)
	if err != nil {
		return nil, contracts.NewSerializationError(op, o.typeName, err)
	}
	o.cached = v
	o.materialized = true
	return v, nil
}

func (o *objectPayload) serialized() (string, []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.typeName, cloneBytes(o.data)
}

// clone copies the serialized form only; the copy materializes on demand
func (o *objectPayload) clone() *objectPayload {
	typeName, data := o.serialized()
	return &objectPayload{typeName: typeName, data: data}
}

func (o *objectPayload) equal(other *objectPayload) bool {
	t1, d1 := o.serialized()
	t2, d2 := other.serialized()
	return t1 == t2 && (d1 == nil) == (d2 == nil) && bytes.Equal(d1, d2)
}
