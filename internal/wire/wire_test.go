package wire

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	id := uuid.New()

	w := NewWriter(64)
	w.PutByte(0xAB)
	w.PutBool(true)
	w.PutBool(false)
	w.PutUvarint(300)
	w.PutVarint(-42)
	w.PutUint16(0xBEEF)
	w.PutUint32(0xDEADBEEF)
	w.PutUint64(math.MaxUint64)
	w.PutFloat32(1.5)
	w.PutFloat64(math.Inf(-1))
	w.PutString("héllo")
	w.PutBytes([]byte{1, 2, 3})
	w.PutBytes(nil)
	w.PutUUID(id)
	w.PutRaw([]byte("tail"))

	r := NewReader(w.Bytes())
	assert.Equal(t, byte(0xAB), r.Byte())
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())
	assert.Equal(t, uint64(300), r.Uvarint())
	assert.Equal(t, int64(-42), r.Varint())
	assert.Equal(t, uint16(0xBEEF), r.Uint16())
	assert.Equal(t, uint32(0xDEADBEEF), r.Uint32())
	assert.Equal(t, uint64(math.MaxUint64), r.Uint64())
	assert.Equal(t, float32(1.5), r.Float32())
	assert.True(t, math.IsInf(r.Float64(), -1))
	assert.Equal(t, "héllo", r.String())
	assert.Equal(t, []byte{1, 2, 3}, r.Bytes())
	assert.Empty(t, r.Bytes())
	assert.Equal(t, id, r.UUID())
	assert.Equal(t, 4, r.Remaining())
	require.NoError(t, r.Err())
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		read    func(r *Reader)
		wantErr error
	}{
		{
			name:    "empty input",
			input:   nil,
			read:    func(r *Reader) { r.Byte() },
			wantErr: ErrTruncated,
		},
		{
			name:    "short fixed width",
			input:   []byte{1, 2, 3},
			read:    func(r *Reader) { r.Uint32() },
			wantErr: ErrTruncated,
		},
		{
			name:    "unterminated varint",
			input:   []byte{0x80, 0x80},
			read:    func(r *Reader) { r.Uvarint() },
			wantErr: ErrTruncated,
		},
		{
			name:    "varint longer than 64 bits",
			input:   []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
			read:    func(r *Reader) { r.Uvarint() },
			wantErr: ErrOverflow,
		},
		{
			name:    "length beyond input",
			input:   []byte{10, 'a', 'b'},
			read:    func(r *Reader) { _ = r.String() },
			wantErr: ErrTruncated,
		},
		{
			name:    "count beyond input",
			input:   []byte{200, 0, 0},
			read:    func(r *Reader) { r.Count(1) },
			wantErr: ErrTruncated,
		},
		{
			name:    "short uuid",
			input:   make([]byte, 15),
			read:    func(r *Reader) { r.UUID() },
			wantErr: ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.input)
			tt.read(r)
			assert.ErrorIs(t, r.Err(), tt.wantErr)
		})
	}
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{5})
	assert.Zero(t, r.Uint16())
	first := r.Err()
	require.Error(t, first)

	assert.Zero(t, r.Byte(), "reads after an error return zero values")
	assert.Equal(t, "", r.String())
	assert.Same(t, first, r.Err(), "first error is kept")
	assert.Equal(t, 0, r.Offset())
}

func TestReaderInvalidBool(t *testing.T) {
	r := NewReader([]byte{2})
	assert.False(t, r.Bool())
	assert.Error(t, r.Err())
}
