package wire

import (
	"encoding/json"

	"github.com/g97iulio1609/agent-browser/internal/errors"
)

// Version is the JSON-RPC protocol version tag carried on every frame.
const Version = "2.0"

// Message is one decoded protocol frame from the daemon.
//
// Classification follows the id field: a message carrying an id is a response
// to an outstanding call; a message without an id is a notification. Responses
// carry Result or Error, never both.
type Message struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *uint64          `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *errors.RPCError `json:"error,omitempty"`
}

// IsResponse reports whether the message correlates to an outstanding call.
func (m *Message) IsResponse() bool {
	return m.ID != nil
}

// IsNotification reports whether the message is a one-way notification.
func (m *Message) IsNotification() bool {
	return m.ID == nil && m.Method != ""
}

// Decode parses a single frame into a Message.
//
// The daemon's stdout may interleave protocol frames with unrelated
// diagnostic text, so a frame that does not parse as a protocol message is
// not an error: Decode returns ok=false and the caller drops the frame.
func Decode(frame string) (*Message, bool) {
	var msg Message
	if err := json.Unmarshal([]byte(frame), &msg); err != nil {
		return nil, false
	}

	// A well-formed JSON value that is neither a response nor a notification
	// (e.g. "null" or an unrelated object) is still noise.
	if msg.ID == nil && msg.Method == "" {
		return nil, false
	}

	return &msg, true
}

// request is the outbound wire representation of a call or notification.
type request struct {
	JSONRPC string  `json:"jsonrpc"`
	ID      *uint64 `json:"id,omitempty"`
	Method  string  `json:"method"`
	Params  any     `json:"params"`
}

// EncodeCall marshals an outbound call frame for the given id.
func EncodeCall(id uint64, method string, params any) ([]byte, error) {
	return json.Marshal(&request{
		JSONRPC: Version,
		ID:      &id,
		Method:  method,
		Params:  normalizeParams(params),
	})
}

// EncodeNotification marshals an outbound notification frame (no id).
func EncodeNotification(method string, params any) ([]byte, error) {
	return json.Marshal(&request{
		JSONRPC: Version,
		Method:  method,
		Params:  normalizeParams(params),
	})
}

// normalizeParams substitutes an empty object for nil params so every frame
// carries a params field, matching what the daemon expects.
func normalizeParams(params any) any {
	if params == nil {
		return map[string]any{}
	}

	return params
}
