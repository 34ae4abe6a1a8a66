// Package value implements the closed tagged-union value type shared by
// the NT4 wire protocol, the WPILOG datalog format, and the query
// surface, along with lossless conversions between the three.
//
// Grounded on the EnokiValue enum in the original source's
// enoki_types.rs, with panicking conversions replaced by ErrTypeMismatch.
package value

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned by any conversion that cannot represent
// the source value in the requested form.
var ErrTypeMismatch = errors.New("value: type mismatch")

type Kind int

const (
	KindBool Kind = iota
	KindI64
	KindF32
	KindF64
	KindStr
	KindBytes
	KindProtobuf
	KindBoolArray
	KindI64Array
	KindF32Array
	KindF64Array
	KindStrArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindProtobuf:
		return "protobuf"
	case KindBoolArray:
		return "bool[]"
	case KindI64Array:
		return "i64[]"
	case KindF32Array:
		return "f32[]"
	case KindF64Array:
		return "f64[]"
	case KindStrArray:
		return "str[]"
	default:
		return "unknown"
	}
}

// Value is a closed tagged union. Exactly one of the typed fields is
// meaningful, selected by Kind. Zero value is Bool(false).
type Value struct {
	kind Kind

	b     bool
	i64   int64
	f32   float32
	f64   float64
	str   string
	bytes []byte

	boolArr []bool
	i64Arr  []int64
	f32Arr  []float32
	f64Arr  []float64
	strArr  []string
}

func Bool(v bool) Value       { return Value{kind: KindBool, b: v} }
func I64(v int64) Value       { return Value{kind: KindI64, i64: v} }
func F32(v float32) Value     { return Value{kind: KindF32, f32: v} }
func F64(v float64) Value     { return Value{kind: KindF64, f64: v} }
func Str(v string) Value      { return Value{kind: KindStr, str: v} }
func Bytes(v []byte) Value    { return Value{kind: KindBytes, bytes: append([]byte(nil), v...)} }
func Protobuf(v []byte) Value { return Value{kind: KindProtobuf, bytes: append([]byte(nil), v...)} }

func BoolArray(v []bool) Value   { return Value{kind: KindBoolArray, boolArr: append([]bool(nil), v...)} }
func I64Array(v []int64) Value   { return Value{kind: KindI64Array, i64Arr: append([]int64(nil), v...)} }
func F32Array(v []float32) Value { return Value{kind: KindF32Array, f32Arr: append([]float32(nil), v...)} }
func F64Array(v []float64) Value { return Value{kind: KindF64Array, f64Arr: append([]float64(nil), v...)} }
func StrArray(v []string) Value  { return Value{kind: KindStrArray, strArr: append([]string(nil), v...)} }

// EmptyArray returns the documented canonical form for a zero-length
// array value: an empty F64 array. This resolves an inconsistency in the
// original Rust source, which defaulted empty arrays to two different
// kinds depending on the conversion path (Deserialize vs. From<rmpv::Value>).
// See DESIGN.md "Open Question decisions".
func EmptyArray() Value { return F64Array(nil) }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: %s is not bool", ErrTypeMismatch, v.kind)
	}
	return v.b, nil
}

func (v Value) AsI64() (int64, error) {
	if v.kind != KindI64 {
		return 0, fmt.Errorf("%w: %s is not i64", ErrTypeMismatch, v.kind)
	}
	return v.i64, nil
}

func (v Value) AsF32() (float32, error) {
	if v.kind != KindF32 {
		return 0, fmt.Errorf("%w: %s is not f32", ErrTypeMismatch, v.kind)
	}
	return v.f32, nil
}

func (v Value) AsF64() (float64, error) {
	if v.kind != KindF64 {
		return 0, fmt.Errorf("%w: %s is not f64", ErrTypeMismatch, v.kind)
	}
	return v.f64, nil
}

func (v Value) AsStr() (string, error) {
	if v.kind != KindStr {
		return "", fmt.Errorf("%w: %s is not str", ErrTypeMismatch, v.kind)
	}
	return v.str, nil
}

func (v Value) AsBytes() ([]byte, error) {
	if v.kind != KindBytes && v.kind != KindProtobuf {
		return nil, fmt.Errorf("%w: %s is not bytes", ErrTypeMismatch, v.kind)
	}
	return append([]byte(nil), v.bytes...), nil
}

func (v Value) AsBoolArray() ([]bool, error) {
	if v.kind != KindBoolArray {
		return nil, fmt.Errorf("%w: %s is not bool[]", ErrTypeMismatch, v.kind)
	}
	return append([]bool(nil), v.boolArr...), nil
}

func (v Value) AsI64Array() ([]int64, error) {
	if v.kind != KindI64Array {
		return nil, fmt.Errorf("%w: %s is not i64[]", ErrTypeMismatch, v.kind)
	}
	return append([]int64(nil), v.i64Arr...), nil
}

func (v Value) AsF32Array() ([]float32, error) {
	if v.kind != KindF32Array {
		return nil, fmt.Errorf("%w: %s is not f32[]", ErrTypeMismatch, v.kind)
	}
	return append([]float32(nil), v.f32Arr...), nil
}

func (v Value) AsF64Array() ([]float64, error) {
	if v.kind != KindF64Array {
		return nil, fmt.Errorf("%w: %s is not f64[]", ErrTypeMismatch, v.kind)
	}
	return append([]float64(nil), v.f64Arr...), nil
}

func (v Value) AsStrArray() ([]string, error) {
	if v.kind != KindStrArray {
		return nil, fmt.Errorf("%w: %s is not str[]", ErrTypeMismatch, v.kind)
	}
	return append([]string(nil), v.strArr...), nil
}

func (v Value) IsArray() bool {
	switch v.kind {
	case KindBoolArray, KindI64Array, KindF32Array, KindF64Array, KindStrArray:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindI64:
		return fmt.Sprintf("%d", v.i64)
	case KindF32:
		return fmt.Sprintf("%g", v.f32)
	case KindF64:
		return fmt.Sprintf("%g", v.f64)
	case KindStr:
		return v.str
	case KindBytes, KindProtobuf:
		return fmt.Sprintf("<%d bytes>", len(v.bytes))
	case KindBoolArray:
		return fmt.Sprintf("%v", v.boolArr)
	case KindI64Array:
		return fmt.Sprintf("%v", v.i64Arr)
	case KindF32Array:
		return fmt.Sprintf("%v", v.f32Arr)
	case KindF64Array:
		return fmt.Sprintf("%v", v.f64Arr)
	case KindStrArray:
		return fmt.Sprintf("%v", v.strArr)
	default:
		return "<invalid value>"
	}
}

// Equal reports deep equality, including array element order.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindI64:
		return v.i64 == other.i64
	case KindF32:
		return v.f32 == other.f32
	case KindF64:
		return v.f64 == other.f64
	case KindStr:
		return v.str == other.str
	case KindBytes, KindProtobuf:
		return string(v.bytes) == string(other.bytes)
	case KindBoolArray:
		return equalSlices(v.boolArr, other.boolArr)
	case KindI64Array:
		return equalSlices(v.i64Arr, other.i64Arr)
	case KindF32Array:
		return equalSlices(v.f32Arr, other.f32Arr)
	case KindF64Array:
		return equalSlices(v.f64Arr, other.f64Arr)
	case KindStrArray:
		return equalSlices(v.strArr, other.strArr)
	default:
		return false
	}
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
