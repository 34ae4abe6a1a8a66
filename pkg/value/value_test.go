package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyParseTreatsColonAsSlash(t *testing.T) {
	k := ParseKey("SmartDashboard:Autonomous Mode")
	require.Equal(t, []string{"SmartDashboard", "Autonomous Mode"}, k.Segments())
}

func TestKeyPreservesLeadingEmptySegment(t *testing.T) {
	k := ParseKey("/SmartDashboard/value")
	require.Equal(t, []string{"", "SmartDashboard", "value"}, k.Segments())
	require.Equal(t, "/SmartDashboard/value", k.String())
}

func TestWireRoundTripDouble(t *testing.T) {
	v := F64(3.14159)
	raw, err := ToWire(v)
	require.NoError(t, err)

	got, err := FromWire("double", raw)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}

func TestWireRoundTripEmptyArrayCanonicalizesToF64(t *testing.T) {
	raw, err := ToWire(F64Array(nil))
	require.NoError(t, err)

	got, err := FromWire("double[]", raw)
	require.NoError(t, err)
	require.Equal(t, KindF64Array, got.Kind())
	arr, err := got.AsF64Array()
	require.NoError(t, err)
	require.Empty(t, arr)
}

func TestWireTypeMismatch(t *testing.T) {
	raw, err := ToWire(Str("hello"))
	require.NoError(t, err)

	_, err = FromWire("boolean", raw)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestDatalogRoundTripAllScalarKinds(t *testing.T) {
	cases := []Value{
		Bool(true),
		I64(-42),
		F32(1.5),
		F64(2.718281828),
		Str("autonomous"),
		Bytes([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
	}
	for _, v := range cases {
		typ, err := DatalogTypeOf(v.Kind())
		require.NoError(t, err)

		payload, err := ToDatalog(v)
		require.NoError(t, err)

		got, err := FromDatalog(typ, payload)
		require.NoError(t, err)
		require.True(t, v.Equal(got), "kind %s", v.Kind())
	}
}

func TestDatalogRoundTripStringArray(t *testing.T) {
	v := StrArray([]string{"auto", "teleop", "endgame"})
	payload, err := ToDatalog(v)
	require.NoError(t, err)

	got, err := FromDatalog("string[]", payload)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}

func TestJSONRoundTrip(t *testing.T) {
	v := I64Array([]int64{1, 2, 3})
	data, err := v.MarshalJSON()
	require.NoError(t, err)

	var got Value
	require.NoError(t, got.UnmarshalJSON(data))
	require.True(t, v.Equal(got))
}

func TestObjectHistoryInvariants(t *testing.T) {
	obj := NewObject()
	k := NewKey("roboRIO", "pdp", "voltage")

	require.NoError(t, obj.AddFieldWithHistory(k, Timestamped{Value: F64(12.0), Micros: 100}))
	require.NoError(t, obj.AddFieldWithHistory(k, Timestamped{Value: F64(12.1), Micros: 200}))

	err := obj.AddFieldWithHistory(k, Timestamped{Value: F64(11.9), Micros: 150})
	require.Error(t, err)

	field, ok := obj.GetField(k)
	require.True(t, ok)
	require.Equal(t, int64(200), field.Timestamped.Micros)

	hist := obj.GetFieldWithHistory(k)
	require.Len(t, hist, 2)
	require.True(t, hist[len(hist)-1].Value.Equal(field.Timestamped.Value))
}
