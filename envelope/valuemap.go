package envelope

import (
	"fmt"

	"github.com/glimte/mmate-mfp/contracts"
)

// valueMap is an insertion-ordered name to value map restricted to the
// closed value set. The zero valueMap is empty and ready to use.
type valueMap struct {
	names    []string
	values   map[string]interface{}
	allowNil bool
}

func (m *valueMap) len() int {
	return len(m.names)
}

func (m *valueMap) keys() []string {
	if len(m.names) == 0 {
		return nil
	}
	return append([]string(nil), m.names...)
}

func (m *valueMap) get(name string) (interface{}, bool) {
	v, ok := m.values[name]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

func (m *valueMap) set(op, name string, v interface{}) error {
	if name == "" {
		return contracts.NewInvalidValue(op, "name", name)
	}
	if !ValidValue(v, m.allowNil) {
		return contracts.NewInvalidValue(op, name, fmt.Sprintf("%T", v))
	}
	if m.values == nil {
		m.values = make(map[string]interface{})
	}
	if _, exists := m.values[name]; !exists {
		m.names = append(m.names, name)
	}
	m.values[name] = copyValue(v)
	return nil
}

func (m *valueMap) remove(name string) bool {
	if _, ok := m.values[name]; !ok {
		return false
	}
	delete(m.values, name)
	for i, n := range m.names {
		if n == name {
			m.names = append(m.names[:i], m.names[i+1:]...)
			break
		}
	}
	if len(m.names) == 0 {
		m.clear()
	}
	return true
}

func (m *valueMap) clear() {
	m.names = nil
	m.values = nil
}

func (m *valueMap) clone() valueMap {
	c := valueMap{allowNil: m.allowNil}
	if len(m.names) == 0 {
		return c
	}
	c.names = append([]string(nil), m.names...)
	c.values = make(map[string]interface{}, len(m.values))
	for k, v := range m.values {
		c.values[k] = copyValue(v)
	}
	return c
}

func (m *valueMap) equal(o *valueMap) bool {
	if len(m.names) != len(o.names) {
		return false
	}
	for i, n := range m.names {
		if o.names[i] != n || !sameValue(m.values[n], o.values[n]) {
			return false
		}
	}
	return true
}

// lookup returns the raw value for a typed getter
func (m *valueMap) lookup(op, name string) (interface{}, error) {
	v, ok := m.values[name]
	if !ok {
		return nil, contracts.NewInvalidValue(op, name, nil)
	}
	return v, nil
}

func convertErr(op, name string, v interface{}, err error) error {
	if err == nil {
		return nil
	}
	return &contracts.MessageError{
		Kind:   contracts.FailureInvalidValue,
		Op:     op,
		Code:   contracts.ReasonInvalidValue,
		Params: []string{name, fmt.Sprint(v)},
		Err:    err,
	}
}

func mapGet[T any](m *valueMap, op, name string, conv func(interface{}) (T, error)) (T, error) {
	var zero T
	v, err := m.lookup(op, name)
	if err != nil {
		return zero, err
	}
	out, err := conv(v)
	if err != nil {
		return zero, convertErr(op, name, v, err)
	}
	return out, nil
}
