package codec

import (
	"fmt"

	"github.com/glimte/mmate-mfp/internal/wire"
)

// Value tags of map entries, stream elements, properties and system context
const (
	tagNil byte = iota
	tagBool
	tagInt8
	tagInt16
	tagChar
	tagInt32
	tagInt64
	tagFloat32
	tagFloat64
	tagString
	tagBytes
	tagNullBytes
)

func putValue(w *wire.Writer, v interface{}) error {
	switch x := v.(type) {
	case nil:
		w.PutByte(tagNil)
	case bool:
		w.PutByte(tagBool)
		w.PutBool(x)
	case int8:
		w.PutByte(tagInt8)
		w.PutByte(byte(x))
	case int16:
		w.PutByte(tagInt16)
		w.PutUint16(uint16(x))
	case uint16:
		w.PutByte(tagChar)
		w.PutUint16(x)
	case int32:
		w.PutByte(tagInt32)
		w.PutVarint(int64(x))
	case int64:
		w.PutByte(tagInt64)
		w.PutVarint(x)
	case float32:
		w.PutByte(tagFloat32)
		w.PutFloat32(x)
	case float64:
		w.PutByte(tagFloat64)
		w.PutFloat64(x)
	case string:
		w.PutByte(tagString)
		w.PutString(x)
	case []byte:
		if x == nil {
			w.PutByte(tagNullBytes)
			return nil
		}
		w.PutByte(tagBytes)
		w.PutBytes(x)
	default:
		return fmt.Errorf("value of type %T has no wire form", v)
	}
	return nil
}

func getValue(r *wire.Reader) (interface{}, error) {
	tag := r.Byte()
	if err := r.Err(); err != nil {
		return nil, err
	}

	var v interface{}
	switch tag {
	case tagNil:
		v = nil
	case tagBool:
		v = r.Bool()
	case tagInt8:
		v = int8(r.Byte())
	case tagInt16:
		v = int16(r.Uint16())
	case tagChar:
		v = r.Uint16()
	case tagInt32:
		n := r.Varint()
		if int64(int32(n)) != n {
			return nil, fmt.Errorf("int32 value %d out of range", n)
		}
		v = int32(n)
	case tagInt64:
		v = r.Varint()
	case tagFloat32:
		v = r.Float32()
	case tagFloat64:
		v = r.Float64()
	case tagString:
		v = r.String()
	case tagBytes:
		v = r.Bytes()
	case tagNullBytes:
		v = []byte(nil)
	default:
		return nil, fmt.Errorf("unknown value tag %d", tag)
	}
	return v, r.Err()
}

// putEntries writes a name/value list in order
func putEntries(w *wire.Writer, names []string, get func(string) (interface{}, bool)) error {
	w.PutUvarint(uint64(len(names)))
	for _, name := range names {
		v, _ := get(name)
		w.PutString(name)
		if err := putValue(w, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// getEntries reads a name/value list, handing each entry to set in order
func getEntries(r *wire.Reader, set func(string, interface{}) error) error {
	// name length byte + tag byte
	n := r.Count(2)
	for i := 0; i < n; i++ {
		name := r.String()
		v, err := getValue(r)
		if err != nil {
			return err
		}
		if err := set(name, v); err != nil {
			return err
		}
	}
	return r.Err()
}
