// Package hub fans dashboard and host traffic out to websocket clients.
// Each hub carries one stream: status snapshots, logs, intents, camera
// previews or control replies.
package hub

// MessageType selects the websocket frame type a message is written with.
type MessageType int

const (
	// JSONMessage is written as a text frame (status, intents, protocol envelopes).
	JSONMessage MessageType = iota
	// BinaryMessage is written as a binary frame (JPEG previews).
	BinaryMessage
)

// Message is one queued websocket frame.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps already encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a binary payload such as a preview JPEG.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
