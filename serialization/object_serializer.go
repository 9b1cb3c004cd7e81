package serialization

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/glimte/mmate-mfp/contracts"
)

// ObjectSerializer converts object-message payloads to bytes and back
type ObjectSerializer interface {
	// Serialize returns the type name and serialized form of value
	Serialize(value interface{}) (typeName string, data []byte, err error)

	// Materialize rebuilds a value from its type name and serialized form
	Materialize(typeName string, data []byte) (interface{}, error)
}

// JSONObjectSerializer implements ObjectSerializer using JSON and a type
// registry. Registered types materialize as pointers to a new instance;
// unregistered types materialize as generic JSON values.
type JSONObjectSerializer struct {
	registry          TypeRegistry
	requireRegistered bool
}

// ObjectSerializerOption configures the JSON object serializer
type ObjectSerializerOption func(*JSONObjectSerializer)

// WithTypeRegistry sets the type registry
func WithTypeRegistry(registry TypeRegistry) ObjectSerializerOption {
	return func(s *JSONObjectSerializer) {
		s.registry = registry
	}
}

// WithRequireRegistered rejects payloads whose type is not registered
func WithRequireRegistered(require bool) ObjectSerializerOption {
	return func(s *JSONObjectSerializer) {
		s.requireRegistered = require
	}
}

// NewJSONObjectSerializer creates a new JSON object serializer
func NewJSONObjectSerializer(opts ...ObjectSerializerOption) *JSONObjectSerializer {
	s := &JSONObjectSerializer{
		registry: NewTypeRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the type registry used by the serializer
func (s *JSONObjectSerializer) Registry() TypeRegistry {
	return s.registry
}

// Serialize serializes value and names its type
func (s *JSONObjectSerializer) Serialize(value interface{}) (string, []byte, error) {
	if value == nil {
		return "", nil, contracts.NewSerializationError("Serialize", "<nil>", fmt.Errorf("value cannot be nil"))
	}

	typeName, err := s.registry.GetTypeName(value)
	if err != nil {
		if s.requireRegistered {
			return "", nil, contracts.NewSerializationError("Serialize", reflect.TypeOf(value).String(), err)
		}
		typeName = reflect.TypeOf(value).String()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return "", nil, contracts.NewSerializationError("Serialize", typeName, err)
	}

	return typeName, data, nil
}

// Materialize deserializes data into the registered type, or into a generic
// value when the type is unknown to the registry
func (s *JSONObjectSerializer) Materialize(typeName string, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, contracts.NewSerializationError("Materialize", typeName, fmt.Errorf("data cannot be empty"))
	}

	if s.registry.IsRegistered(typeName) {
		instance, err := s.registry.CreateInstance(typeName)
		if err != nil {
			return nil, contracts.NewSerializationError("Materialize", typeName, err)
		}
		if err := json.Unmarshal(data, instance); err != nil {
			return nil, contracts.NewSerializationError("Materialize", typeName, err)
		}
		return instance, nil
	}

	if s.requireRegistered {
		return nil, contracts.NewSerializationError("Materialize", typeName, fmt.Errorf("type %s not registered", typeName))
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, contracts.NewSerializationError("Materialize", typeName, err)
	}
	return generic, nil
}
