package value

import (
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// ToWire encodes v as a MessagePack payload suitable for an NT4 data
// frame. Integers narrower than int64 are not distinguished on the wire;
// NT4 servers treat any MessagePack integer as the topic's declared type.
func ToWire(v Value) ([]byte, error) {
	return msgpack.Marshal(toWireNative(v))
}

func toWireNative(v Value) interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindI64:
		return v.i64
	case KindF32:
		return v.f32
	case KindF64:
		return v.f64
	case KindStr:
		return v.str
	case KindBytes, KindProtobuf:
		return v.bytes
	// Array cases return non-nil slices so an empty array is encoded as a
	// zero-length MessagePack array rather than nil.
	case KindBoolArray:
		return append([]bool{}, v.boolArr...)
	case KindI64Array:
		return append([]int64{}, v.i64Arr...)
	case KindF32Array:
		return append([]float32{}, v.f32Arr...)
	case KindF64Array:
		return append([]float64{}, v.f64Arr...)
	case KindStrArray:
		return append([]string{}, v.strArr...)
	default:
		return nil
	}
}

// FromWire decodes a MessagePack payload into a Value, given the NT4
// type string declared for the topic ("boolean", "int", "float",
// "double", "string", "raw", "rpc", "msgpack", "protobuf", or the
// array-suffixed forms, e.g. "boolean[]"). The NT4 type is required
// because MessagePack alone cannot distinguish int32 from int64 or
// float32 from float64.
func FromWire(nt4Type string, payload []byte) (Value, error) {
	var native interface{}
	if err := msgpack.Unmarshal(payload, &native); err != nil {
		return Value{}, fmt.Errorf("value: decode msgpack payload: %w", err)
	}
	return fromWireNative(nt4Type, native)
}

func fromWireNative(nt4Type string, native interface{}) (Value, error) {
	switch nt4Type {
	case "boolean":
		b, ok := native.(bool)
		if !ok {
			return Value{}, fmt.Errorf("%w: nt4 type boolean, got %T", ErrTypeMismatch, native)
		}
		return Bool(b), nil
	case "int":
		i, err := toInt64(native)
		if err != nil {
			return Value{}, err
		}
		return I64(i), nil
	case "float":
		f, err := toFloat64(native)
		if err != nil {
			return Value{}, err
		}
		return F32(float32(f)), nil
	case "double":
		f, err := toFloat64(native)
		if err != nil {
			return Value{}, err
		}
		return F64(f), nil
	case "string", "json":
		s, ok := native.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: nt4 type string, got %T", ErrTypeMismatch, native)
		}
		return Str(s), nil
	case "raw", "rpc", "msgpack":
		b, ok := native.([]byte)
		if !ok {
			return Value{}, fmt.Errorf("%w: nt4 type raw, got %T", ErrTypeMismatch, native)
		}
		return Bytes(b), nil
	case "protobuf":
		b, ok := native.([]byte)
		if !ok {
			return Value{}, fmt.Errorf("%w: nt4 type protobuf, got %T", ErrTypeMismatch, native)
		}
		return Protobuf(b), nil
	case "boolean[]":
		items, err := toSlice(native)
		if err != nil {
			return Value{}, err
		}
		if len(items) == 0 {
			return EmptyArray(), nil
		}
		out := make([]bool, len(items))
		for i, it := range items {
			b, ok := it.(bool)
			if !ok {
				return Value{}, fmt.Errorf("%w: boolean[] element %d is %T", ErrTypeMismatch, i, it)
			}
			out[i] = b
		}
		return BoolArray(out), nil
	case "int[]":
		items, err := toSlice(native)
		if err != nil {
			return Value{}, err
		}
		if len(items) == 0 {
			return EmptyArray(), nil
		}
		out := make([]int64, len(items))
		for i, it := range items {
			n, err := toInt64(it)
			if err != nil {
				return Value{}, err
			}
			out[i] = n
		}
		return I64Array(out), nil
	case "float[]":
		items, err := toSlice(native)
		if err != nil {
			return Value{}, err
		}
		if len(items) == 0 {
			return EmptyArray(), nil
		}
		out := make([]float32, len(items))
		for i, it := range items {
			f, err := toFloat64(it)
			if err != nil {
				return Value{}, err
			}
			out[i] = float32(f)
		}
		return F32Array(out), nil
	case "double[]":
		items, err := toSlice(native)
		if err != nil {
			return Value{}, err
		}
		if len(items) == 0 {
			return EmptyArray(), nil
		}
		out := make([]float64, len(items))
		for i, it := range items {
			f, err := toFloat64(it)
			if err != nil {
				return Value{}, err
			}
			out[i] = f
		}
		return F64Array(out), nil
	case "string[]":
		items, err := toSlice(native)
		if err != nil {
			return Value{}, err
		}
		if len(items) == 0 {
			return EmptyArray(), nil
		}
		out := make([]string, len(items))
		for i, it := range items {
			s, ok := it.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: string[] element %d is %T", ErrTypeMismatch, i, it)
			}
			out[i] = s
		}
		return StrArray(out), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown nt4 type %q", ErrTypeMismatch, nt4Type)
	}
}

func toSlice(native interface{}) ([]interface{}, error) {
	items, ok := native.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrTypeMismatch, native)
	}
	return items, nil
}

func toInt64(native interface{}) (int64, error) {
	switch n := native.(type) {
	case int64:
		return n, nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64, nil
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrTypeMismatch, native)
	}
}

func toFloat64(native interface{}) (float64, error) {
	switch n := native.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		i, err := toInt64(native)
		if err != nil {
			return 0, fmt.Errorf("%w: expected float, got %T", ErrTypeMismatch, native)
		}
		return float64(i), nil
	}
}

// NT4TypeOf returns the NT4 wire type string for v's Kind.
func NT4TypeOf(k Kind) (string, error) {
	switch k {
	case KindBool:
		return "boolean", nil
	case KindI64:
		return "int", nil
	case KindF32:
		return "float", nil
	case KindF64:
		return "double", nil
	case KindStr:
		return "string", nil
	case KindBytes:
		return "raw", nil
	case KindProtobuf:
		return "protobuf", nil
	case KindBoolArray:
		return "boolean[]", nil
	case KindI64Array:
		return "int[]", nil
	case KindF32Array:
		return "float[]", nil
	case KindF64Array:
		return "double[]", nil
	case KindStrArray:
		return "string[]", nil
	default:
		return "", fmt.Errorf("%w: no nt4 type for kind %s", ErrTypeMismatch, k)
	}
}
