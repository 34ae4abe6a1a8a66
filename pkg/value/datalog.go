package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DatalogTypeOf returns the WPILOG entry type string for k, following the
// table in the original source's networktable handler (datalog_type()).
func DatalogTypeOf(k Kind) (string, error) {
	switch k {
	case KindBool:
		return "boolean", nil
	case KindI64:
		return "int64", nil
	case KindF32:
		return "float", nil
	case KindF64:
		return "double", nil
	case KindStr:
		return "string", nil
	case KindBytes:
		return "raw", nil
	case KindProtobuf:
		// Asymmetric with FromDatalog: a decoded "raw" entry always comes
		// back as Bytes, never Protobuf. The datalog format does not carry
		// enough information to recover which one was written.
		return "raw", nil
	case KindBoolArray:
		return "boolean[]", nil
	case KindI64Array:
		return "int64[]", nil
	case KindF32Array:
		return "float[]", nil
	case KindF64Array:
		return "double[]", nil
	case KindStrArray:
		return "string[]", nil
	default:
		return "", fmt.Errorf("%w: no datalog type for kind %s", ErrTypeMismatch, k)
	}
}

// ToDatalog encodes v into the WPILOG record-payload byte layout for its
// declared entry type. Fixed-width arrays are length-implicit: the record
// framing (pkg/datalog) records the payload length, not an explicit
// element count. string[] payloads start with an explicit element count.
func ToDatalog(v Value) ([]byte, error) {
	switch v.kind {
	case KindBool:
		if v.b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindI64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.i64))
		return buf, nil
	case KindF32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.f32))
		return buf, nil
	case KindF64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.f64))
		return buf, nil
	case KindStr:
		return []byte(v.str), nil
	case KindBytes, KindProtobuf:
		return append([]byte(nil), v.bytes...), nil
	case KindBoolArray:
		buf := make([]byte, len(v.boolArr))
		for i, b := range v.boolArr {
			if b {
				buf[i] = 1
			}
		}
		return buf, nil
	case KindI64Array:
		buf := make([]byte, 8*len(v.i64Arr))
		for i, n := range v.i64Arr {
			binary.LittleEndian.PutUint64(buf[i*8:], uint64(n))
		}
		return buf, nil
	case KindF32Array:
		buf := make([]byte, 4*len(v.f32Arr))
		for i, f := range v.f32Arr {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		return buf, nil
	case KindF64Array:
		buf := make([]byte, 8*len(v.f64Arr))
		for i, f := range v.f64Arr {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
		}
		return buf, nil
	case KindStrArray:
		// length-prefixed UTF-8 strings, matching WPILOG's string[] encoding.
		var buf []byte
		count := make([]byte, 4)
		binary.LittleEndian.PutUint32(count, uint32(len(v.strArr)))
		buf = append(buf, count...)
		for _, s := range v.strArr {
			lenBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(lenBuf, uint32(len(s)))
			buf = append(buf, lenBuf...)
			buf = append(buf, s...)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: cannot encode kind %s to datalog", ErrTypeMismatch, v.kind)
	}
}

// FromDatalog decodes a WPILOG record payload into a Value given its
// declared entry type string (as returned by DatalogTypeOf).
func FromDatalog(entryType string, payload []byte) (Value, error) {
	switch entryType {
	case "boolean":
		if len(payload) != 1 {
			return Value{}, fmt.Errorf("%w: boolean payload len %d", ErrTypeMismatch, len(payload))
		}
		return Bool(payload[0] != 0), nil
	case "int64":
		if len(payload) != 8 {
			return Value{}, fmt.Errorf("%w: int64 payload len %d", ErrTypeMismatch, len(payload))
		}
		return I64(int64(binary.LittleEndian.Uint64(payload))), nil
	case "float":
		if len(payload) != 4 {
			return Value{}, fmt.Errorf("%w: float payload len %d", ErrTypeMismatch, len(payload))
		}
		return F32(math.Float32frombits(binary.LittleEndian.Uint32(payload))), nil
	case "double":
		if len(payload) != 8 {
			return Value{}, fmt.Errorf("%w: double payload len %d", ErrTypeMismatch, len(payload))
		}
		return F64(math.Float64frombits(binary.LittleEndian.Uint64(payload))), nil
	case "string":
		return Str(string(payload)), nil
	case "raw":
		return Bytes(payload), nil
	case "boolean[]":
		out := make([]bool, len(payload))
		for i, b := range payload {
			out[i] = b != 0
		}
		if len(out) == 0 {
			return EmptyArray(), nil
		}
		return BoolArray(out), nil
	case "int64[]":
		if len(payload)%8 != 0 {
			return Value{}, fmt.Errorf("%w: int64[] payload len %d not a multiple of 8", ErrTypeMismatch, len(payload))
		}
		n := len(payload) / 8
		if n == 0 {
			return EmptyArray(), nil
		}
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(payload[i*8:]))
		}
		return I64Array(out), nil
	case "float[]":
		if len(payload)%4 != 0 {
			return Value{}, fmt.Errorf("%w: float[] payload len %d not a multiple of 4", ErrTypeMismatch, len(payload))
		}
		n := len(payload) / 4
		if n == 0 {
			return EmptyArray(), nil
		}
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		}
		return F32Array(out), nil
	case "double[]":
		if len(payload)%8 != 0 {
			return Value{}, fmt.Errorf("%w: double[] payload len %d not a multiple of 8", ErrTypeMismatch, len(payload))
		}
		n := len(payload) / 8
		if n == 0 {
			return EmptyArray(), nil
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
		}
		return F64Array(out), nil
	case "string[]":
		if len(payload) < 4 {
			return EmptyArray(), nil
		}
		count := binary.LittleEndian.Uint32(payload)
		if count == 0 {
			return EmptyArray(), nil
		}
		out := make([]string, 0, count)
		off := 4
		for i := uint32(0); i < count; i++ {
			if off+4 > len(payload) {
				return Value{}, fmt.Errorf("%w: truncated string[] at element %d", ErrTypeMismatch, i)
			}
			l := int(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
			if off+l > len(payload) {
				return Value{}, fmt.Errorf("%w: truncated string[] element %d", ErrTypeMismatch, i)
			}
			out = append(out, string(payload[off:off+l]))
			off += l
		}
		return StrArray(out), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown datalog entry type %q", ErrTypeMismatch, entryType)
	}
}
