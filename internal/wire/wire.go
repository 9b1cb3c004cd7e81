// Package wire provides the primitive binary encoding used by the envelope
// codec: varints, fixed-width integers, floats, length-prefixed strings and
// byte arrays, and UUIDs.
//
// A Reader keeps the first error it meets and returns zero values from then
// on, so callers decode a whole structure and check Err once.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

var (
	// ErrTruncated is returned when the input ends inside a value
	ErrTruncated = errors.New("wire: truncated input")
	// ErrOverflow is returned when a varint does not fit 64 bits
	ErrOverflow = errors.New("wire: varint overflows")
)

// Writer appends encoded values to a buffer
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded buffer
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutByte writes one byte
func (w *Writer) PutByte(b byte) {
	w.buf = append(w.buf, b)
}

// PutBool writes a bool as one byte
func (w *Writer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// PutUvarint writes an unsigned varint
func (w *Writer) PutUvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// PutVarint writes a zig-zag signed varint
func (w *Writer) PutVarint(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

// PutUint16 writes a big-endian uint16
func (w *Writer) PutUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// PutUint32 writes a big-endian uint32
func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// PutUint64 writes a big-endian uint64
func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// PutFloat32 writes the IEEE 754 bits of v
func (w *Writer) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

// PutFloat64 writes the IEEE 754 bits of v
func (w *Writer) PutFloat64(v float64) {
	w.PutUint64(math.Float64bits(v))
}

// PutBytes writes a length-prefixed byte array
func (w *Writer) PutBytes(b []byte) {
	w.PutUvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// PutString writes a length-prefixed string
func (w *Writer) PutString(s string) {
	w.PutUvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// PutUUID writes the 16 bytes of id
func (w *Writer) PutUUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

// PutRaw writes b without a length prefix
func (w *Writer) PutRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reader decodes values from a buffer
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader creates a reader over b
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err returns the first error met
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the number of bytes consumed
func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.fail(fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining()))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Byte reads one byte
func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a bool; any byte other than 0 or 1 is an error
func (r *Reader) Bool() bool {
	switch r.Byte() {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail(fmt.Errorf("wire: invalid bool at offset %d", r.off-1))
		return false
	}
}

// Uvarint reads an unsigned varint
func (r *Reader) Uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	switch {
	case n == 0:
		r.fail(fmt.Errorf("%w: varint at offset %d", ErrTruncated, r.off))
		return 0
	case n < 0:
		r.fail(fmt.Errorf("%w at offset %d", ErrOverflow, r.off))
		return 0
	}
	r.off += n
	return v
}

// Varint reads a zig-zag signed varint
func (r *Reader) Varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf[r.off:])
	switch {
	case n == 0:
		r.fail(fmt.Errorf("%w: varint at offset %d", ErrTruncated, r.off))
		return 0
	case n < 0:
		r.fail(fmt.Errorf("%w at offset %d", ErrOverflow, r.off))
		return 0
	}
	r.off += n
	return v
}

// Uint16 reads a big-endian uint16
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// Uint32 reads a big-endian uint32
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Uint64 reads a big-endian uint64
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Float32 reads IEEE 754 bits
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// Float64 reads IEEE 754 bits
func (r *Reader) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

func (r *Reader) length() int {
	n := r.Uvarint()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.Remaining()) {
		r.fail(fmt.Errorf("%w: length %d at offset %d exceeds %d remaining", ErrTruncated, n, r.off, r.Remaining()))
		return 0
	}
	return int(n)
}

// Bytes reads a length-prefixed byte array into a new slice
func (r *Reader) Bytes() []byte {
	n := r.length()
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, n), b...)
}

// String reads a length-prefixed string
func (r *Reader) String() string {
	n := r.length()
	return string(r.take(n))
}

// UUID reads 16 bytes
func (r *Reader) UUID() uuid.UUID {
	var id uuid.UUID
	copy(id[:], r.take(16))
	return id
}

// Count reads a uvarint element count and checks that at least min bytes
// per element remain, so a corrupt count cannot force a huge allocation
func (r *Reader) Count(min int) int {
	n := r.Uvarint()
	if r.err != nil {
		return 0
	}
	if min < 1 {
		min = 1
	}
	if n > uint64(r.Remaining()/min) {
		r.fail(fmt.Errorf("%w: count %d at offset %d exceeds input", ErrTruncated, n, r.off))
		return 0
	}
	return int(n)
}
