package video

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sigMessage covers every message of the GStreamer webrtcsink signalling
// protocol that the receiver uses.
type sigMessage struct {
	Type      string      `json:"type"`
	PeerID    string      `json:"peerId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Producers []producer  `json:"producers,omitempty"`
	SDP       *sdpPayload `json:"sdp,omitempty"`
	ICE       *icePayload `json:"ice,omitempty"`
}

type producer struct {
	ID   string            `json:"id"`
	Meta map[string]string `json:"meta"`
}

type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type icePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
}

// signaller wraps the signalling websocket. Writes are serialized; reads
// happen on one goroutine only.
type signaller struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func dialSignaller(ctx context.Context, url string) (*signaller, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("signalling connect failed: %w", err)
	}
	return &signaller{conn: conn}, nil
}

func (s *signaller) send(msg sigMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// read returns the next message. A zero timeout waits indefinitely.
func (s *signaller) read(timeout time.Duration) (sigMessage, error) {
	if timeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(timeout))
		defer s.conn.SetReadDeadline(time.Time{})
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return sigMessage{}, err
	}
	var msg sigMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return sigMessage{}, fmt.Errorf("bad signalling message: %w", err)
	}
	return msg, nil
}

// welcome waits for the server greeting and returns our peer ID.
func (s *signaller) welcome(timeout time.Duration) (string, error) {
	msg, err := s.read(timeout)
	if err != nil {
		return "", err
	}
	if msg.Type != "welcome" {
		return "", fmt.Errorf("expected welcome, got %s", msg.Type)
	}
	return msg.PeerID, nil
}

// findProducer lists producers and returns the ID of the one whose "name"
// meta matches name. An empty name picks the first producer.
func (s *signaller) findProducer(name string, timeout time.Duration) (string, error) {
	if err := s.send(sigMessage{Type: "list"}); err != nil {
		return "", err
	}

	msg, err := s.read(timeout)
	if err != nil {
		return "", err
	}
	if msg.Type != "list" {
		return "", fmt.Errorf("expected list, got %s", msg.Type)
	}

	for _, p := range msg.Producers {
		if name == "" || p.Meta["name"] == name {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("producer %q not found in %d producers", name, len(msg.Producers))
}

func (s *signaller) close() error {
	return s.conn.Close()
}
