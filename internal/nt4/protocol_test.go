package nt4

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/telemetry-bridge/pkg/value"
)

func TestSubscribeFrameRoundTrips(t *testing.T) {
	raw, err := buildSubscribe([]string{"/SmartDashboard"}, 7, SubscriptionPackage{Prefix: true})
	require.NoError(t, err)

	msgs, err := parseControlFrame(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "subscribe", msgs[0].Method)

	var p subscribeParams
	require.NoError(t, unmarshalParams(msgs[0].Params, &p))
	require.Equal(t, []string{"/SmartDashboard"}, p.Topics)
	require.Equal(t, int64(7), p.SubUID)
	require.True(t, p.Options.Prefix)
}

func TestAnnounceFrameRoundTrips(t *testing.T) {
	raw, err := encodeControlFrame([]controlMessage{{Method: "announce", Params: mustJSON(t, announceParams{Name: "/x", ID: 3, Type: "double"})}})
	require.NoError(t, err)

	msgs, err := parseControlFrame(raw)
	require.NoError(t, err)

	var p announceParams
	require.NoError(t, unmarshalParams(msgs[0].Params, &p))
	require.Equal(t, "/x", p.Name)
	require.Equal(t, int64(3), p.ID)
	require.Equal(t, "double", p.Type)
}

func TestDataFrameRoundTrip(t *testing.T) {
	v := value.F64(2.5)
	raw, err := encodeDataFrame(3, 1000, defaultTypeID, v)
	require.NoError(t, err)

	frame, err := decodeDataFrame(raw)
	require.NoError(t, err)
	require.Equal(t, int64(3), frame.TopicID)
	require.Equal(t, int64(1000), frame.Timestamp)

	wireBytes, err := nativeToWireBytes(frame.Raw)
	require.NoError(t, err)
	got, err := value.FromWire("double", wireBytes)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}

func TestDatalogTypeOfKnownTypes(t *testing.T) {
	typ, err := DatalogTypeOf("double")
	require.NoError(t, err)
	require.Equal(t, "double", typ)

	_, err = DatalogTypeOf("nonsense")
	require.Error(t, err)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
