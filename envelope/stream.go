package envelope

import (
	"errors"
	"fmt"

	"github.com/glimte/mmate-mfp/contracts"
)

// ErrEndOfStream is returned when reading past the last stream element
var ErrEndOfStream = errors.New("envelope: end of stream")

// errPartialRead marks a typed read attempted while a byte array element is
// only partly consumed
var errPartialRead = errors.New("byte array element partly read")

// valueStream is an ordered sequence of values with a read cursor
type valueStream struct {
	values []interface{}
	pos    int
	// inBytes is set while a byte array element is being read in chunks;
	// offset is then the number of its bytes already returned
	inBytes bool
	offset  int
}

func (s *valueStream) write(op string, v interface{}) error {
	if !ValidValue(v, true) {
		return contracts.NewInvalidValue(op, "stream", fmt.Sprintf("%T", v))
	}
	s.values = append(s.values, copyValue(v))
	return nil
}

func (s *valueStream) reset() {
	s.pos = 0
	s.inBytes = false
	s.offset = 0
}

// stepBack restarts a partly read byte array element; otherwise it moves the
// cursor back one element
func (s *valueStream) stepBack() {
	if s.inBytes {
		s.inBytes = false
		s.offset = 0
		return
	}
	if s.pos > 0 {
		s.pos--
	}
}

// streamRead converts the element under the cursor and advances only when the
// conversion succeeds
func streamRead[T any](s *valueStream, op string, conv func(interface{}) (T, error)) (T, error) {
	var zero T
	if s.inBytes {
		return zero, convertErr(op, "stream", "[]byte", errPartialRead)
	}
	if s.pos >= len(s.values) {
		return zero, ErrEndOfStream
	}
	v := s.values[s.pos]
	out, err := conv(v)
	if err != nil {
		return zero, convertErr(op, "stream", v, err)
	}
	s.pos++
	return out, nil
}

// readBytes copies the next chunk of a byte array element into p. A return
// smaller than len(p) completes the element; -1 reports a nil element or a
// completed element whose final chunk exactly filled the previous buffer.
// An empty p reads nothing and leaves the cursor alone.
func (s *valueStream) readBytes(op string, p []byte) (int, error) {
	if s.pos >= len(s.values) {
		return 0, ErrEndOfStream
	}
	v := s.values[s.pos]
	if v == nil {
		s.pos++
		return -1, nil
	}
	elem, ok := v.([]byte)
	if !ok {
		return 0, convertErr(op, "stream", v, errConversion)
	}

	if len(p) == 0 {
		return 0, nil
	}

	remaining := elem[s.offset:]
	if s.inBytes && len(remaining) == 0 {
		s.inBytes = false
		s.offset = 0
		s.pos++
		return -1, nil
	}

	n := copy(p, remaining)
	if n < len(p) {
		s.inBytes = false
		s.offset = 0
		s.pos++
		return n, nil
	}
	s.inBytes = true
	s.offset += n
	return n, nil
}

func (s *valueStream) clone() (*valueStream, error) {
	if s.inBytes {
		return nil, errPartialRead
	}
	c := &valueStream{pos: s.pos}
	if len(s.values) > 0 {
		c.values = make([]interface{}, len(s.values))
		for i, v := range s.values {
			c.values[i] = copyValue(v)
		}
	}
	return c, nil
}

func (s *valueStream) equal(o *valueStream) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for i, v := range s.values {
		if !sameValue(v, o.values[i]) {
			return false
		}
	}
	return true
}
