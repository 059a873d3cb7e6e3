package binary

import (
	"encoding/binary"
	"math"
)

// Number is the set of fixed-width values the pitch formats store.
// All values are little-endian on disk.
type Number interface {
	int32 | uint32 | int64 | uint64 | float64
}

// SizeOf returns the encoded width of T in bytes.
func SizeOf[T Number]() int {
	var zero T
	switch any(zero).(type) {
	case int32, uint32:
		return 4
	default:
		return 8
	}
}

func decode[T Number](buf []byte) T {
	var v T
	switch p := any(&v).(type) {
	case *int32:
		*p = int32(binary.LittleEndian.Uint32(buf))
	case *uint32:
		*p = binary.LittleEndian.Uint32(buf)
	case *int64:
		*p = int64(binary.LittleEndian.Uint64(buf))
	case *uint64:
		*p = binary.LittleEndian.Uint64(buf)
	case *float64:
		*p = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return v
}

func encode[T Number](buf []byte, v T) {
	switch x := any(v).(type) {
	case int32:
		binary.LittleEndian.PutUint32(buf, uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(buf, x)
	case int64:
		binary.LittleEndian.PutUint64(buf, uint64(x))
	case uint64:
		binary.LittleEndian.PutUint64(buf, x)
	case float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
	}
}
