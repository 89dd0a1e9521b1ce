// Package protocol defines the WebSocket message types for the link between
// the gaze navigator and the host application that owns the viewport.
// This package has no dependency on the tracking core so host-side tools
// can share it.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Navigator → Host messages
	TypeIntent MessageType = "intent" // Viewport navigation command
	TypeStatus MessageType = "status" // Navigator state

	// Host → Navigator messages
	TypeTrigger MessageType = "trigger" // Gesture key held/released
	TypeEnable  MessageType = "enable"  // Activation switch

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Navigator → Host Message Types
// =============================================================================

// Intent kinds as they appear on the wire.
const (
	KindNone       = "none"
	KindOrbitLeft  = "orbit_left"
	KindOrbitRight = "orbit_right"
	KindZoom       = "zoom"
)

// IntentData is one viewport command. Orbit kinds carry Step, zoom carries
// Delta (added to the view distance).
type IntentData struct {
	Kind      string  `json:"kind"`
	Step      int     `json:"step,omitempty"`
	Delta     float64 `json:"delta,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
}

// StatusData mirrors the navigator panel: activation, sensitivity and
// the current gesture.
type StatusData struct {
	Enabled     bool   `json:"enabled"`
	State       string `json:"state"`   // "idle", "tracking"
	Trigger     string `json:"trigger"` // "none", "rotate", "zoom"
	Sensitivity int    `json:"sensitivity"`
	SessionID   string `json:"session_id,omitempty"`
}

// =============================================================================
// Host → Navigator Message Types
// =============================================================================

// Trigger names as they appear on the wire.
const (
	TriggerNone   = "none"
	TriggerRotate = "rotate"
	TriggerZoom   = "zoom"
)

// TriggerData reports which gesture key the host is holding.
type TriggerData struct {
	Trigger string `json:"trigger"`
}

// EnableData toggles gaze navigation.
type EnableData struct {
	Enabled bool `json:"enabled"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
