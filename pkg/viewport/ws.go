package viewport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gazenav/pkg/protocol"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

const (
	defaultRetry = 2 * time.Second
	writeWait    = time.Second
)

// WSSink keeps a websocket open to the host. Intents go out as protocol
// messages; trigger, enable and ping messages coming back are applied to
// the controller.
type WSSink struct {
	url    string
	ctrl   Controller
	logger *slog.Logger
	dialer websocket.Dialer
	retry  time.Duration

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn

	connected atomic.Bool
}

// WSOption configures a WSSink.
type WSOption func(*WSSink)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WSOption {
	return func(h *WSSink) {
		h.logger = l
	}
}

// WithRetry sets the delay between reconnect attempts.
func WithRetry(d time.Duration) WSOption {
	return func(h *WSSink) {
		h.retry = d
	}
}

// NewWSSink creates a host link for url, e.g. "ws://localhost:8000/ws/gaze".
// ctrl may be nil if the host is not allowed to drive the navigator.
func NewWSSink(url string, ctrl Controller, opts ...WSOption) *WSSink {
	h := &WSSink{
		url:    url,
		ctrl:   ctrl,
		logger: slog.Default(),
		dialer: websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		retry:  defaultRetry,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "viewport", "url", url)
	return h
}

// Run connects and serves the link until ctx is cancelled, reconnecting
// after failures.
func (h *WSSink) Run(ctx context.Context) {
	for {
		if err := h.serve(ctx); err != nil && ctx.Err() == nil {
			h.logger.Warn("host link down", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.retry):
		}
	}
}

// Connected reports whether a host is attached.
func (h *WSSink) Connected() bool {
	return h.connected.Load()
}

func (h *WSSink) serve(ctx context.Context) error {
	conn, _, err := h.dialer.DialContext(ctx, h.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
	h.connected.Store(true)
	h.logger.Info("host connected")

	// Unblock ReadMessage on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	defer func() {
		h.connected.Store(false)
		h.mu.Lock()
		h.conn = nil
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		h.handle(data)
	}
}

func (h *WSSink) handle(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Debug("bad host message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeTrigger:
		td, err := msg.GetTriggerData()
		if err != nil || h.ctrl == nil {
			return
		}
		trigger, err := tracking.ParseTrigger(td.Trigger)
		if err != nil {
			h.logger.Debug("unknown trigger", "trigger", td.Trigger)
			return
		}
		h.ctrl.SetTrigger(trigger)

	case protocol.TypeEnable:
		ed, err := msg.GetEnableData()
		if err != nil || h.ctrl == nil {
			return
		}
		h.ctrl.SetEnabled(ed.Enabled)

	case protocol.TypePing:
		pong, err := protocol.Pong(msg)
		if err != nil {
			return
		}
		if err := h.write(pong); err != nil {
			h.logger.Debug("pong failed", "error", err)
		}
	}
}

// Apply sends intent to the host. None intents are not sent.
func (h *WSSink) Apply(_ context.Context, intent tracking.Intent) error {
	if intent.IsNone() {
		return nil
	}
	msg, err := protocol.NewIntentMessage(intentData(intent))
	if err != nil {
		return err
	}
	return h.write(msg)
}

func (h *WSSink) write(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return ErrNotConnected
	}
	h.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return h.conn.WriteMessage(websocket.TextMessage, data)
}
