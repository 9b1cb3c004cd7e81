package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// errConversion marks a value that JMS conversion rules do not allow
var errConversion = errors.New("conversion not allowed")

// ValidValue reports whether v belongs to the closed set of values a map,
// stream or property may hold: bool, int8, int16, uint16 (char), int32,
// int64, float32, float64, string and []byte. nil is accepted only when
// allowNil is set.
func ValidValue(v interface{}, allowNil bool) bool {
	switch v.(type) {
	case nil:
		return allowNil
	case bool, int8, int16, uint16, int32, int64, float32, float64, string, []byte:
		return true
	default:
		return false
	}
}

// sameValue compares two closed-set values. Floats compare by bit pattern
// so a NaN equals itself; a nil byte slice differs from an empty one.
func sameValue(a, b interface{}) bool {
	switch x := a.(type) {
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && (x == nil) == (y == nil) && bytes.Equal(x, y)
	default:
		return a == b
	}
}

// copyValue returns v with byte slices duplicated
func copyValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return cloneBytes(b)
	}
	return v
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, errConversion
	}
}

func toInt8(v interface{}) (int8, error) {
	switch x := v.(type) {
	case int8:
		return x, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 8)
		return int8(n), err
	default:
		return 0, errConversion
	}
}

func toInt16(v interface{}) (int16, error) {
	switch x := v.(type) {
	case int8:
		return int16(x), nil
	case int16:
		return x, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 16)
		return int16(n), err
	default:
		return 0, errConversion
	}
}

func toChar(v interface{}) (uint16, error) {
	if x, ok := v.(uint16); ok {
		return x, nil
	}
	return 0, errConversion
}

func toInt32(v interface{}) (int32, error) {
	switch x := v.(type) {
	case int8:
		return int32(x), nil
	case int16:
		return int32(x), nil
	case int32:
		return x, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 32)
		return int32(n), err
	default:
		return 0, errConversion
	}
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, errConversion
	}
}

func toFloat32(v interface{}) (float32, error) {
	switch x := v.(type) {
	case float32:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(x, 32)
		return float32(f), err
	default:
		return 0, errConversion
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, errConversion
	}
}

func toString(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int8, int16, int32, int64:
		return fmt.Sprint(x), nil
	case uint16:
		return string(rune(x)), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", errConversion
	}
}

func toBytes(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return cloneBytes(x), nil
	default:
		return nil, errConversion
	}
}
