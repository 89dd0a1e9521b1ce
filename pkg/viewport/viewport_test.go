package viewport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gazenav/pkg/protocol"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

type recordingSink struct {
	mu      sync.Mutex
	intents []tracking.Intent
	err     error
}

func (s *recordingSink) Apply(_ context.Context, in tracking.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.intents = append(s.intents, in)
	return nil
}

func (s *recordingSink) got() []tracking.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tracking.Intent(nil), s.intents...)
}

type fakeController struct {
	mu      sync.Mutex
	trigger tracking.Trigger
	enabled *bool
}

func (f *fakeController) SetTrigger(t tracking.Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trigger = t
}

func (f *fakeController) SetEnabled(e bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = &e
}

func (f *fakeController) state() (tracking.Trigger, *bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trigger, f.enabled
}

func TestHTTPSink_PostsIntentMessages(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/intent", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
	}))
	defer srv.Close()

	host := NewHTTPSink(srv.URL + "/")
	ctx := context.Background()
	require.NoError(t, host.Apply(ctx, tracking.OrbitRight(3)))
	require.NoError(t, host.Apply(ctx, tracking.None()))
	require.NoError(t, host.Apply(ctx, tracking.ZoomBy(-2)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)

	msg, err := protocol.ParseMessage([]byte(bodies[0]))
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeIntent, msg.Type)
	data, err := msg.GetIntentData()
	require.NoError(t, err)
	assert.Equal(t, protocol.KindOrbitRight, data.Kind)
	assert.Equal(t, 3, data.Step)

	msg, err = protocol.ParseMessage([]byte(bodies[1]))
	require.NoError(t, err)
	data, err = msg.GetIntentData()
	require.NoError(t, err)
	assert.Equal(t, protocol.KindZoom, data.Kind)
	assert.Equal(t, -2.0, data.Delta)
}

func TestHTTPSink_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPSink(srv.URL).Apply(context.Background(), tracking.OrbitLeft(1))
	assert.Error(t, err)
}

func TestRateSink_Coalesces(t *testing.T) {
	next := &recordingSink{}
	r := NewRateSink(next, time.Hour)
	ctx := context.Background()

	r.Apply(ctx, tracking.OrbitLeft(2))
	r.Apply(ctx, tracking.OrbitRight(5))
	r.Apply(ctx, tracking.ZoomBy(4))
	r.Apply(ctx, tracking.ZoomBy(-1))
	r.Apply(ctx, tracking.None())

	orbit, zoom := r.Pending()
	assert.Equal(t, 3, orbit)
	assert.Equal(t, 3.0, zoom)

	r.Flush(ctx)
	assert.Equal(t, []tracking.Intent{tracking.OrbitRight(3), tracking.ZoomBy(3)}, next.got())

	// nothing pending, nothing sent
	r.Apply(ctx, tracking.ZoomBy(0))
	r.Flush(ctx)
	assert.Len(t, next.got(), 2)

	r.Apply(ctx, tracking.OrbitLeft(1))
	r.Apply(ctx, tracking.OrbitLeft(1))
	r.Flush(ctx)
	assert.Equal(t, tracking.OrbitLeft(2), next.got()[2])
}

func TestRateSink_DropsRejectedIntents(t *testing.T) {
	next := &recordingSink{err: errors.New("host down")}
	r := NewRateSink(next, time.Hour)
	ctx := context.Background()

	// host unreachable for 200 periods
	for i := 0; i < 200; i++ {
		r.Apply(ctx, tracking.OrbitRight(1))
		r.Apply(ctx, tracking.ZoomBy(2))
		r.Flush(ctx)

		orbit, zoom := r.Pending()
		require.Zero(t, orbit)
		require.Zero(t, zoom)
	}

	next.mu.Lock()
	next.err = nil
	next.mu.Unlock()

	r.Apply(ctx, tracking.OrbitLeft(1))
	r.Flush(ctx)
	assert.Equal(t, []tracking.Intent{tracking.OrbitLeft(1)}, next.got())
}

func TestRateSink_RunFlushesOnCancel(t *testing.T) {
	next := &recordingSink{}
	r := NewRateSink(next, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	r.Apply(ctx, tracking.ZoomBy(5))

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, []tracking.Intent{tracking.ZoomBy(5)}, next.got())
}

// hostServer is a websocket host that records what the navigator sends
// and lets the test push messages back.
type hostServer struct {
	*httptest.Server
	received chan []byte
	conns    chan *websocket.Conn
}

func newHostServer(t *testing.T) *hostServer {
	t.Helper()
	h := &hostServer{received: make(chan []byte, 16), conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			h.received <- data
		}
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *hostServer) wsURL() string {
	return "ws" + strings.TrimPrefix(h.URL, "http")
}

func (h *hostServer) next(t *testing.T) *protocol.Message {
	t.Helper()
	select {
	case data := <-h.received:
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("host received nothing")
		return nil
	}
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg *protocol.Message, err error) {
	t.Helper()
	require.NoError(t, err)
	data, err := msg.Bytes()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestWSSink_RoundTrip(t *testing.T) {
	srv := newHostServer(t)
	ctrl := &fakeController{}
	host := NewWSSink(srv.wsURL(), ctrl, WithRetry(10*time.Millisecond))

	assert.ErrorIs(t, host.Apply(context.Background(), tracking.OrbitLeft(1)), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Run(ctx)

	require.Eventually(t, host.Connected, 2*time.Second, 5*time.Millisecond)
	conn := <-srv.conns

	require.NoError(t, host.Apply(ctx, tracking.OrbitLeft(2)))
	msg := srv.next(t)
	assert.Equal(t, protocol.TypeIntent, msg.Type)
	data, err := msg.GetIntentData()
	require.NoError(t, err)
	assert.Equal(t, protocol.KindOrbitLeft, data.Kind)
	assert.Equal(t, 2, data.Step)

	m, err := protocol.NewTriggerMessage(protocol.TriggerRotate)
	sendMessage(t, conn, m, err)
	m, err = protocol.NewEnableMessage(false)
	sendMessage(t, conn, m, err)

	require.Eventually(t, func() bool {
		trig, enabled := ctrl.state()
		return trig == tracking.TriggerRotate && enabled != nil && !*enabled
	}, 2*time.Second, 5*time.Millisecond)

	m, err = protocol.NewPingMessage("p1")
	sendMessage(t, conn, m, err)
	pong := srv.next(t)
	assert.Equal(t, protocol.TypePong, pong.Type)
	pd, err := pong.GetPongData()
	require.NoError(t, err)
	assert.Equal(t, "p1", pd.ID)

	cancel()
	require.Eventually(t, func() bool { return !host.Connected() }, 2*time.Second, 5*time.Millisecond)
}
