package datalog

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var ErrBadValue = errors.New("malformed value payload")

// DecodeValue converts a data record payload into its interchange string
// encoding: "true"/"false" for booleans, decimal for integers, shortest
// round-trip form for scalar floats, %.6g comma-joined for float arrays,
// lowercase hex for raw. An error means this one sample is unusable; the
// rest of the stream is unaffected.
//
//nolint:cyclop // one case per variant
func DecodeValue(t Type, data []byte) (string, error) {
	switch t {
	case TypeBoolean:
		if len(data) < 1 {
			return "", ErrBadValue
		}
		return strconv.FormatBool(data[0] != 0), nil
	case TypeInt64:
		v, err := readVarInt(data)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case TypeFloat:
		if len(data) != 4 {
			return "", ErrBadValue
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(data))
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case TypeDouble:
		if len(data) != 8 {
			return "", ErrBadValue
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(data))
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case TypeString:
		return string(data), nil
	case TypeBooleanArray:
		vals := lo.Map(data, func(b byte, _ int) string {
			return strconv.FormatBool(b != 0)
		})
		return strings.Join(vals, ","), nil
	case TypeInt64Array:
		return decodeInt64Array(data), nil
	case TypeFloatArray:
		return decodeFloatArray(data), nil
	case TypeDoubleArray:
		return decodeDoubleArray(data), nil
	case TypeStringArray:
		return decodeStringArray(data)
	case TypeRaw:
		return hex.EncodeToString(data), nil
	}
	return hex.EncodeToString(data), nil
}

// readVarInt sign-extends a little-endian integer of up to 8 bytes.
func readVarInt(data []byte) (int64, error) {
	if len(data) > 8 {
		return 0, ErrBadValue
	}
	if len(data) == 0 {
		return 0, nil
	}
	v := readVarUint(data, len(data))
	shift := uint(64 - 8*len(data))
	return int64(v<<shift) >> shift, nil
}

func decodeInt64Array(data []byte) string {
	count := len(data) / 8
	vals := make([]string, count)
	for i := 0; i < count; i++ {
		v := int64(binary.LittleEndian.Uint64(data[i*8:]))
		vals[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(vals, ",")
}

func decodeFloatArray(data []byte) string {
	count := len(data) / 4
	vals := make([]string, count)
	for i := 0; i < count; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		vals[i] = strconv.FormatFloat(float64(v), 'g', 6, 64)
	}
	return strings.Join(vals, ",")
}

func decodeDoubleArray(data []byte) string {
	count := len(data) / 8
	vals := make([]string, count)
	for i := 0; i < count; i++ {
		v := math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		vals[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return strings.Join(vals, ",")
}

func decodeStringArray(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrBadValue
	}
	count := int(binary.LittleEndian.Uint32(data))
	// the claimed count is untrusted; each element needs at least a
	// 4 byte length prefix, so cap the allocation at what could fit
	vals := make([]string, 0, min(count, (len(data)-4)/4))
	pos := 4
	for j := 0; j < count; j++ {
		s, next, err := readInnerString(data, pos)
		if err != nil {
			return "", err
		}
		vals = append(vals, s)
		pos = next
	}
	return strings.Join(vals, ","), nil
}
