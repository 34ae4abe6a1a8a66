package nt4

import (
	"encoding/json"
	"fmt"

	"github.com/fieldtrace/telemetry-bridge/pkg/value"
	"github.com/vmihailenco/msgpack/v5"
)

// NT4 control messages travel as a JSON array of {method, params} text
// frames; data travels as binary MessagePack frames shaped
// [topicID, timestampMicros, typeID, rawValue]. This mirrors the real
// NT4 wire protocol (networktables.first.wpi.edu subprotocol).

type controlMessage struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type publishParams struct {
	Name string   `json:"name"`
	PubUID int64  `json:"pubuid"`
	Type   string `json:"type"`
}

type unpublishParams struct {
	PubUID int64 `json:"pubuid"`
}

type subscribeParams struct {
	Topics  []string `json:"topics"`
	SubUID  int64    `json:"subuid"`
	Options subOptions `json:"options"`
}

type subOptions struct {
	Periodic float64 `json:"periodic,omitempty"`
	All      bool    `json:"all,omitempty"`
	Prefix   bool    `json:"prefix,omitempty"`
}

type unsubscribeParams struct {
	SubUID int64 `json:"subuid"`
}

type announceParams struct {
	Name   string `json:"name"`
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	PubUID *int64 `json:"pubuid,omitempty"`
}

type unannounceParams struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

func encodeControlFrame(msgs []controlMessage) ([]byte, error) {
	return json.Marshal(msgs)
}

func buildPublish(name string, pubuid int64, nt4Type string) ([]byte, error) {
	p, err := json.Marshal(publishParams{Name: name, PubUID: pubuid, Type: nt4Type})
	if err != nil {
		return nil, err
	}
	return encodeControlFrame([]controlMessage{{Method: "publish", Params: p}})
}

func buildUnpublish(pubuid int64) ([]byte, error) {
	p, err := json.Marshal(unpublishParams{PubUID: pubuid})
	if err != nil {
		return nil, err
	}
	return encodeControlFrame([]controlMessage{{Method: "unpublish", Params: p}})
}

func buildSubscribe(topics []string, subuid int64, opts SubscriptionPackage) ([]byte, error) {
	p, err := json.Marshal(subscribeParams{
		Topics: topics,
		SubUID: subuid,
		Options: subOptions{
			Periodic: opts.Periodic,
			All:      opts.All,
			Prefix:   opts.Prefix,
		},
	})
	if err != nil {
		return nil, err
	}
	return encodeControlFrame([]controlMessage{{Method: "subscribe", Params: p}})
}

func buildUnsubscribe(subuid int64) ([]byte, error) {
	p, err := json.Marshal(unsubscribeParams{SubUID: subuid})
	if err != nil {
		return nil, err
	}
	return encodeControlFrame([]controlMessage{{Method: "unsubscribe", Params: p}})
}

func parseControlFrame(data []byte) ([]controlMessage, error) {
	var msgs []controlMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("nt4: decode control frame: %w", err)
	}
	return msgs, nil
}

// dataFrame is the on-wire shape of a binary NT4 value update.
type dataFrame struct {
	TopicID   int64
	Timestamp int64
	TypeID    int
	Raw       interface{}
}

func decodeDataFrame(b []byte) (dataFrame, error) {
	var raw []interface{}
	if err := msgpack.Unmarshal(b, &raw); err != nil {
		return dataFrame{}, fmt.Errorf("nt4: decode data frame: %w", err)
	}
	if len(raw) != 4 {
		return dataFrame{}, fmt.Errorf("nt4: data frame has %d elements, want 4", len(raw))
	}
	id, err := toInt64(raw[0])
	if err != nil {
		return dataFrame{}, err
	}
	ts, err := toInt64(raw[1])
	if err != nil {
		return dataFrame{}, err
	}
	typeID, err := toInt64(raw[2])
	if err != nil {
		return dataFrame{}, err
	}
	return dataFrame{TopicID: id, Timestamp: ts, TypeID: int(typeID), Raw: raw[3]}, nil
}

func encodeDataFrame(topicID int64, micros int64, typeID int, v value.Value) ([]byte, error) {
	native, err := wireNativeFor(v)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal([]interface{}{topicID, micros, typeID, native})
}

func wireNativeFor(v value.Value) (interface{}, error) {
	raw, err := value.ToWire(v)
	if err != nil {
		return nil, err
	}
	var native interface{}
	if err := msgpack.Unmarshal(raw, &native); err != nil {
		return nil, err
	}
	return native, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
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
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("nt4: expected integer, got %T", v)
	}
}

// NT4 numeric typeIDs are vendor-specific; we carry the type
// string instead wherever possible and fall back to 0 on the wire,
// matching servers that ignore the MessagePack-embedded typeID.
const defaultTypeID = 0

// DatalogTypeOf maps an NT4 wire type string to the WPILOG entry type
// string, following the original source's datalog_type() table.
func DatalogTypeOf(nt4Type string) (string, error) {
	switch nt4Type {
	case "boolean":
		return "boolean", nil
	case "int":
		return "int64", nil
	case "float":
		return "float", nil
	case "double":
		return "double", nil
	case "string", "json":
		return "string", nil
	case "raw", "rpc", "msgpack":
		return "raw", nil
	case "protobuf":
		return "raw", nil
	case "boolean[]":
		return "boolean[]", nil
	case "int[]":
		return "int64[]", nil
	case "float[]":
		return "float[]", nil
	case "double[]":
		return "double[]", nil
	case "string[]":
		return "string[]", nil
	default:
		return "", fmt.Errorf("nt4: unknown nt4 type %q", nt4Type)
	}
}
