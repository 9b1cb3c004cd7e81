package envelope

import (
	"github.com/glimte/mmate-mfp/contracts"
)

// JmsView narrows an envelope to a JMS message. It shares the envelope's
// storage.
type JmsView struct {
	e *Envelope
}

// AsJmsMessage returns a JMS view or an incorrect-kind error
func (e *Envelope) AsJmsMessage() (*JmsView, error) {
	if e.h.kind != contracts.MessageKindJMS {
		return nil, contracts.NewIncorrectKind("AsJmsMessage", contracts.MessageKindJMS, e.h.kind)
	}
	return &JmsView{e: e}, nil
}

// Envelope returns the underlying envelope
func (v *JmsView) Envelope() *Envelope {
	return v.e
}

// BodyKind returns the JMS body kind
func (v *JmsView) BodyKind() contracts.JmsBodyKind {
	return v.e.body.kind
}

func (v *JmsView) narrow(op string, want contracts.JmsBodyKind) error {
	if v.e.body.kind != want {
		return contracts.NewIncorrectKind(op, want, v.e.body.kind)
	}
	return nil
}

// AsBytes returns a bytes-message view
func (v *JmsView) AsBytes() (*BytesMessage, error) {
	if err := v.narrow("AsBytes", contracts.JmsBodyBytes); err != nil {
		return nil, err
	}
	return &BytesMessage{e: v.e}, nil
}

// AsText returns a text-message view
func (v *JmsView) AsText() (*TextMessage, error) {
	if err := v.narrow("AsText", contracts.JmsBodyText); err != nil {
		return nil, err
	}
	return &TextMessage{e: v.e}, nil
}

// AsMap returns a map-message view
func (v *JmsView) AsMap() (*MapMessage, error) {
	if err := v.narrow("AsMap", contracts.JmsBodyMap); err != nil {
		return nil, err
	}
	return &MapMessage{e: v.e}, nil
}

// AsStream returns a stream-message view
func (v *JmsView) AsStream() (*StreamMessage, error) {
	if err := v.narrow("AsStream", contracts.JmsBodyStream); err != nil {
		return nil, err
	}
	return &StreamMessage{e: v.e}, nil
}

// AsObject returns an object-message view
func (v *JmsView) AsObject() (*ObjectMessage, error) {
	if err := v.narrow("AsObject", contracts.JmsBodyObject); err != nil {
		return nil, err
	}
	return &ObjectMessage{e: v.e}, nil
}

// BytesMessage carries an opaque byte buffer
type BytesMessage struct {
	e *Envelope
}

// Envelope returns the underlying envelope
func (m *BytesMessage) Envelope() *Envelope { return m.e }

// GetBytes returns a copy of the payload; nil when never set
func (m *BytesMessage) GetBytes() []byte {
	return cloneBytes(m.e.body.data)
}

// SetBytes copies b into the payload
func (m *BytesMessage) SetBytes(b []byte) error {
	if err := m.e.mutable("SetBytes"); err != nil {
		return err
	}
	if b == nil {
		m.e.body.data = nil
		return nil
	}
	m.e.body.data = cloneBytes(b)
	return nil
}

// Len returns the payload length
func (m *BytesMessage) Len() int {
	return len(m.e.body.data)
}

// TextMessage carries a string payload. A null text differs from "".
type TextMessage struct {
	e *Envelope
}

// Envelope returns the underlying envelope
func (m *TextMessage) Envelope() *Envelope { return m.e }

// GetText returns the text, or false when it is null
func (m *TextMessage) GetText() (string, bool) {
	return m.e.body.text.get()
}

// SetText sets the text
func (m *TextMessage) SetText(s string) error {
	if err := m.e.mutable("SetText"); err != nil {
		return err
	}
	m.e.body.text = some(s)
	return nil
}

// ClearText makes the text null
func (m *TextMessage) ClearText() error {
	if err := m.e.mutable("ClearText"); err != nil {
		return err
	}
	m.e.body.text = opt[string]{}
	return nil
}

// MapMessage carries an ordered name to value map
type MapMessage struct {
	e *Envelope
}

// Envelope returns the underlying envelope
func (m *MapMessage) Envelope() *Envelope { return m.e }

// Names returns the entry names in insertion order
func (m *MapMessage) Names() []string { return m.e.body.values.keys() }

// Len returns the number of entries
func (m *MapMessage) Len() int { return m.e.body.values.len() }

// Get returns an entry without conversion
func (m *MapMessage) Get(name string) (interface{}, bool) {
	return m.e.body.values.get(name)
}

// Set stores an entry. nil is not a valid map value.
func (m *MapMessage) Set(name string, v interface{}) error {
	if err := m.e.mutable("MapSet"); err != nil {
		return err
	}
	return m.e.body.values.set("MapSet", name, v)
}

// Remove deletes an entry and reports whether it existed
func (m *MapMessage) Remove(name string) (bool, error) {
	if err := m.e.mutable("MapRemove"); err != nil {
		return false, err
	}
	return m.e.body.values.remove(name), nil
}

// GetBool converts an entry to bool
func (m *MapMessage) GetBool(name string) (bool, error) {
	return mapGet(&m.e.body.values, "GetBool", name, toBool)
}

// GetInt8 converts an entry to int8
func (m *MapMessage) GetInt8(name string) (int8, error) {
	return mapGet(&m.e.body.values, "GetInt8", name, toInt8)
}

// GetInt16 converts an entry to int16
func (m *MapMessage) GetInt16(name string) (int16, error) {
	return mapGet(&m.e.body.values, "GetInt16", name, toInt16)
}

// GetChar returns a char entry
func (m *MapMessage) GetChar(name string) (uint16, error) {
	return mapGet(&m.e.body.values, "GetChar", name, toChar)
}

// GetInt32 converts an entry to int32
func (m *MapMessage) GetInt32(name string) (int32, error) {
	return mapGet(&m.e.body.values, "GetInt32", name, toInt32)
}

// GetInt64 converts an entry to int64
func (m *MapMessage) GetInt64(name string) (int64, error) {
	return mapGet(&m.e.body.values, "GetInt64", name, toInt64)
}

// GetFloat32 converts an entry to float32
func (m *MapMessage) GetFloat32(name string) (float32, error) {
	return mapGet(&m.e.body.values, "GetFloat32", name, toFloat32)
}

// GetFloat64 converts an entry to float64
func (m *MapMessage) GetFloat64(name string) (float64, error) {
	return mapGet(&m.e.body.values, "GetFloat64", name, toFloat64)
}

// GetString converts an entry to string
func (m *MapMessage) GetString(name string) (string, error) {
	return mapGet(&m.e.body.values, "GetString", name, toString)
}

// GetBytes returns a copy of a byte array entry
func (m *MapMessage) GetBytes(name string) ([]byte, error) {
	return mapGet(&m.e.body.values, "GetBytes", name, toBytes)
}

// StreamMessage carries a sequence of values read through a cursor. Moving
// the cursor counts as a mutation.
type StreamMessage struct {
	e *Envelope
}

// Envelope returns the underlying envelope
func (m *StreamMessage) Envelope() *Envelope { return m.e }

// Len returns the number of elements
func (m *StreamMessage) Len() int { return len(m.e.body.stream.values) }

// Values returns a copy of every element, ignoring the cursor
func (m *StreamMessage) Values() []interface{} {
	src := m.e.body.stream.values
	if len(src) == 0 {
		return nil
	}
	out := make([]interface{}, len(src))
	for i, v := range src {
		out[i] = copyValue(v)
	}
	return out
}

// Write appends an element
func (m *StreamMessage) Write(v interface{}) error {
	if err := m.e.mutable("StreamWrite"); err != nil {
		return err
	}
	return m.e.body.stream.write("StreamWrite", v)
}

// Reset rewinds the cursor to the first element
func (m *StreamMessage) Reset() error {
	if err := m.e.mutable("StreamReset"); err != nil {
		return err
	}
	m.e.body.stream.reset()
	return nil
}

// StepBack moves the cursor back one element. During a partial ReadBytes
// it instead restarts the element being read, so the next ReadBytes returns
// its first chunk again.
func (m *StreamMessage) StepBack() error {
	if err := m.e.mutable("StreamStepBack"); err != nil {
		return err
	}
	m.e.body.stream.stepBack()
	return nil
}

func streamReadAs[T any](m *StreamMessage, op string, conv func(interface{}) (T, error)) (T, error) {
	if err := m.e.mutable(op); err != nil {
		var zero T
		return zero, err
	}
	return streamRead(m.e.body.stream, op, conv)
}

// ReadValue reads the next element without conversion
func (m *StreamMessage) ReadValue() (interface{}, error) {
	return streamReadAs(m, "ReadValue", func(v interface{}) (interface{}, error) {
		return copyValue(v), nil
	})
}

// ReadBool reads the next element as bool
func (m *StreamMessage) ReadBool() (bool, error) {
	return streamReadAs(m, "ReadBool", toBool)
}

// ReadInt8 reads the next element as int8
func (m *StreamMessage) ReadInt8() (int8, error) {
	return streamReadAs(m, "ReadInt8", toInt8)
}

// ReadInt16 reads the next element as int16
func (m *StreamMessage) ReadInt16() (int16, error) {
	return streamReadAs(m, "ReadInt16", toInt16)
}

// ReadChar reads the next element as a char
func (m *StreamMessage) ReadChar() (uint16, error) {
	return streamReadAs(m, "ReadChar", toChar)
}

// ReadInt32 reads the next element as int32
func (m *StreamMessage) ReadInt32() (int32, error) {
	return streamReadAs(m, "ReadInt32", toInt32)
}

// ReadInt64 reads the next element as int64
func (m *StreamMessage) ReadInt64() (int64, error) {
	return streamReadAs(m, "ReadInt64", toInt64)
}

// ReadFloat32 reads the next element as float32
func (m *StreamMessage) ReadFloat32() (float32, error) {
	return streamReadAs(m, "ReadFloat32", toFloat32)
}

// ReadFloat64 reads the next element as float64
func (m *StreamMessage) ReadFloat64() (float64, error) {
	return streamReadAs(m, "ReadFloat64", toFloat64)
}

// ReadString reads the next element as string
func (m *StreamMessage) ReadString() (string, error) {
	return streamReadAs(m, "ReadString", toString)
}

// ReadBytes reads the next chunk of a byte array element into p. A count
// below len(p) completes the element. -1 means the element was nil or was
// already completely read by the previous call. An empty p on a byte array
// element returns 0 and does not move the cursor.
func (m *StreamMessage) ReadBytes(p []byte) (int, error) {
	if err := m.e.mutable("ReadBytes"); err != nil {
		return 0, err
	}
	return m.e.body.stream.readBytes("ReadBytes", p)
}

// ObjectMessage carries a serialized object, materialized on first access
type ObjectMessage struct {
	e *Envelope
}

// Envelope returns the underlying envelope
func (m *ObjectMessage) Envelope() *Envelope { return m.e }

// SetObject serializes v with the envelope's object serializer. nil clears
// the payload.
func (m *ObjectMessage) SetObject(v interface{}) error {
	if err := m.e.mutable("SetObject"); err != nil {
		return err
	}
	return m.e.body.object.set("SetObject", m.e.serializer, v)
}

// GetObject returns the materialized payload; nil when never set. The
// result is cached and shared by later calls.
func (m *ObjectMessage) GetObject() (interface{}, error) {
	return m.e.body.object.get("GetObject", m.e.serializer)
}

// GetTypeName returns the type name recorded by the serializer
func (m *ObjectMessage) GetTypeName() string {
	name, _ := m.e.body.object.serialized()
	return name
}

// GetSerialized returns a copy of the serialized payload
func (m *ObjectMessage) GetSerialized() (string, []byte) {
	return m.e.body.object.serialized()
}

// SetSerialized installs an already serialized payload
func (m *ObjectMessage) SetSerialized(typeName string, data []byte) error {
	if err := m.e.mutable("SetSerialized"); err != nil {
		return err
	}
	m.e.body.object.setSerialized(typeName, data)
	return nil
}
