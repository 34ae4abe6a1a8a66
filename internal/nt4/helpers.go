package nt4

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

func jsonUnmarshal(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

// nativeToWireBytes re-encodes a value already decoded from a MessagePack
// data frame back into a standalone MessagePack payload so it can be run
// through value.FromWire, which expects a raw wire payload rather than a
// pre-decoded native Go value.
func nativeToWireBytes(native interface{}) ([]byte, error) {
	return msgpack.Marshal(native)
}
