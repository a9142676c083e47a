// Package hub broadcasts JSON events to websocket subscribers through a
// single fan-out goroutine per hub.
package hub

import "encoding/json"

// Message is one event as it appears on the wire.
type Message struct {
	// Type names the event, e.g. "state", "turn" or "log".
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewMessage encodes v as the payload of a typed message.
func NewMessage(typ string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Data: data}, nil
}
