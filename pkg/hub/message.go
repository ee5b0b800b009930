// Package hub fans telemetry frames out to every connected dashboard over
// websocket.
package hub

// Message is one text frame queued for clients. Data is already encoded.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
