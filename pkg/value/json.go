package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// jsonValue is the wire shape used for the query surface's JSON output:
// {"kind":"f64","value":1.5}. Bytes/protobuf values are base64-encoded.
type jsonValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	var err error
	switch v.kind {
	case KindBool:
		raw, err = json.Marshal(v.b)
	case KindI64:
		raw, err = json.Marshal(v.i64)
	case KindF32:
		raw, err = json.Marshal(v.f32)
	case KindF64:
		raw, err = json.Marshal(v.f64)
	case KindStr:
		raw, err = json.Marshal(v.str)
	case KindBytes, KindProtobuf:
		raw, err = json.Marshal(base64.StdEncoding.EncodeToString(v.bytes))
	case KindBoolArray:
		raw, err = json.Marshal(v.boolArr)
	case KindI64Array:
		raw, err = json.Marshal(v.i64Arr)
	case KindF32Array:
		raw, err = json.Marshal(v.f32Arr)
	case KindF64Array:
		raw, err = json.Marshal(v.f64Arr)
	case KindStrArray:
		raw, err = json.Marshal(v.strArr)
	default:
		return nil, fmt.Errorf("%w: cannot marshal kind %s", ErrTypeMismatch, v.kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Kind: v.kind.String(), Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch jv.Kind {
	case "bool":
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "i64":
		var n int64
		if err := json.Unmarshal(jv.Value, &n); err != nil {
			return err
		}
		*v = I64(n)
	case "f32":
		var f float32
		if err := json.Unmarshal(jv.Value, &f); err != nil {
			return err
		}
		*v = F32(f)
	case "f64":
		var f float64
		if err := json.Unmarshal(jv.Value, &f); err != nil {
			return err
		}
		*v = F64(f)
	case "str":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		*v = Str(s)
	case "bytes", "protobuf":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("%w: invalid base64 payload: %v", ErrTypeMismatch, err)
		}
		if jv.Kind == "bytes" {
			*v = Bytes(b)
		} else {
			*v = Protobuf(b)
		}
	case "bool[]":
		var a []bool
		if err := json.Unmarshal(jv.Value, &a); err != nil {
			return err
		}
		*v = BoolArray(a)
	case "i64[]":
		var a []int64
		if err := json.Unmarshal(jv.Value, &a); err != nil {
			return err
		}
		*v = I64Array(a)
	case "f32[]":
		var a []float32
		if err := json.Unmarshal(jv.Value, &a); err != nil {
			return err
		}
		*v = F32Array(a)
	case "f64[]":
		var a []float64
		if err := json.Unmarshal(jv.Value, &a); err != nil {
			return err
		}
		*v = F64Array(a)
	case "str[]":
		var a []string
		if err := json.Unmarshal(jv.Value, &a); err != nil {
			return err
		}
		*v = StrArray(a)
	default:
		return fmt.Errorf("%w: unknown json kind %q", ErrTypeMismatch, jv.Kind)
	}
	return nil
}
