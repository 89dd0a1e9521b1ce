package protocol

import "time"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewIntentMessage creates an intent message
func NewIntentMessage(data IntentData) (*Message, error) {
	return NewMessage(TypeIntent, data)
}

// NewStatusMessage creates a status message
func NewStatusMessage(data StatusData) (*Message, error) {
	return NewMessage(TypeStatus, data)
}

// NewTriggerMessage creates a trigger message
func NewTriggerMessage(trigger string) (*Message, error) {
	return NewMessage(TypeTrigger, TriggerData{Trigger: trigger})
}

// NewEnableMessage creates an activation message
func NewEnableMessage(enabled bool) (*Message, error) {
	return NewMessage(TypeEnable, EnableData{Enabled: enabled})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// Pong answers a ping message.
func Pong(ping *Message) (*Message, error) {
	data, err := ping.GetPingData()
	if err != nil {
		return nil, err
	}
	return NewPongMessage(data.ID, data.Timestamp, time.Now().UnixMilli())
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetIntentData extracts intent data from a message
func (m *Message) GetIntentData() (*IntentData, error) {
	var data IntentData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTriggerData extracts trigger data from a message
func (m *Message) GetTriggerData() (*TriggerData, error) {
	var data TriggerData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEnableData extracts activation data from a message
func (m *Message) GetEnableData() (*EnableData, error) {
	var data EnableData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
