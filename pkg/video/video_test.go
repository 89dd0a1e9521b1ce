package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gazenav/pkg/camera"
)

func encodeJPEG(t *testing.T, w, h int, bgr gocv.Scalar) []byte {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(bgr, h, w, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	require.NoError(t, err)
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}

func nal(typ byte, payload ...byte) []byte {
	return append([]byte{typ}, payload...)
}

func TestNalTypes(t *testing.T) {
	stream := []byte{0, 0, 0, 1, 0x67, 0xaa, 0, 0, 0, 1, 0x68, 0xbb, 0, 0, 1, 0x65, 0xcc}
	assert.Equal(t, []uint8{7, 8, 5}, nalTypes(stream))
	assert.Empty(t, nalTypes([]byte{1, 2, 3}))
}

func TestAssembler_WaitsForSPSAndIDR(t *testing.T) {
	a := newAssembler(0)

	// Slices before the first SPS are dropped
	assert.False(t, a.push(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: nal(0x41, 1, 2)}))
	assert.Zero(t, a.buf.Len())

	assert.False(t, a.push(&rtp.Packet{Payload: nal(0x67, 1, 2, 3)}))
	assert.False(t, a.push(&rtp.Packet{Payload: nal(0x68, 4)}))
	assert.True(t, a.push(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: nal(0x65, 5, 6)}))

	assert.Equal(t, []uint8{7, 8, 5}, nalTypes(a.stream()))

	// A new SPS restarts the buffer
	assert.False(t, a.push(&rtp.Packet{Payload: nal(0x67, 9)}))
	assert.Equal(t, []uint8{7}, nalTypes(a.stream()))
}

func TestAssembler_ResetsWhenOversized(t *testing.T) {
	a := newAssembler(16)
	a.push(&rtp.Packet{Payload: nal(0x67, 1)})
	assert.False(t, a.push(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: nal(0x65, make([]byte, 32)...)}))
	assert.Zero(t, a.buf.Len())
}

func TestLastJPEG(t *testing.T) {
	first := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 0xff, 0xd9}
	second := []byte{0xff, 0xd8, 0xff, 0xe0, 2, 0xff, 0xd9}
	assert.Equal(t, second, lastJPEG(append(append([]byte{}, first...), second...)))
	assert.Nil(t, lastJPEG([]byte("not a jpeg")))
}

func TestFFmpegDecoder_ShortStream(t *testing.T) {
	_, err := NewFFmpegDecoder().Decode(context.Background(), []byte{0, 0, 1})
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestIsBlank(t *testing.T) {
	for _, tc := range []struct {
		name  string
		w, h  int
		bgr   gocv.Scalar
		blank bool
	}{
		{"black", 160, 120, gocv.NewScalar(5, 5, 5, 0), true},
		{"gray", 160, 120, gocv.NewScalar(128, 128, 128, 0), true},
		{"tiny", 32, 32, gocv.NewScalar(40, 90, 200, 0), true},
		{"scene", 160, 120, gocv.NewScalar(40, 90, 200, 0), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := camera.Decode(encodeJPEG(t, tc.w, tc.h, tc.bgr))
			require.NoError(t, err)
			defer frame.Close()
			assert.Equal(t, tc.blank, isBlank(&frame))
		})
	}
}

type fakeDecoder struct {
	jpeg []byte
	err  error
}

func (f *fakeDecoder) Decode(context.Context, []byte) ([]byte, error) {
	return f.jpeg, f.err
}

func TestSource_NextFrame(t *testing.T) {
	scene := encodeJPEG(t, 160, 120, gocv.NewScalar(40, 90, 200, 0))
	s := newSource(DefaultConfig("ws://unused"), WithDecoder(&fakeDecoder{jpeg: scene}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := s.NextFrame(ctx)
	cancel()
	assert.ErrorIs(t, err, camera.ErrNoFrame)

	s.decoding.Store(true)
	s.decode([]byte("stream"))
	assert.False(t, s.decoding.Load())

	frame, err := s.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 160, frame.Width())
	frame.Close()

	// The same frame is not returned twice
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.publish(scene)
	}()
	frame, err = s.NextFrame(context.Background())
	require.NoError(t, err)
	frame.Close()

	require.NoError(t, s.Close())
	_, err = s.NextFrame(context.Background())
	assert.ErrorIs(t, err, camera.ErrClosed)
}

func TestSource_SkipsBlankAndFailedDecodes(t *testing.T) {
	gray := encodeJPEG(t, 160, 120, gocv.NewScalar(128, 128, 128, 0))
	s := newSource(DefaultConfig("ws://unused"), WithDecoder(&fakeDecoder{jpeg: gray}))
	s.decode(nil)

	s.decoder = &fakeDecoder{err: errors.New("boom")}
	s.decode(nil)

	s.frameMu.Lock()
	assert.Zero(t, s.seq)
	s.frameMu.Unlock()
}

func TestSignaller_WelcomeAndProducer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(sigMessage{Type: "welcome", PeerID: "me"})
		for {
			var msg sigMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "list" {
				conn.WriteJSON(sigMessage{Type: "list", Producers: []producer{
					{ID: "p1", Meta: map[string]string{"name": "desk"}},
					{ID: "p2", Meta: map[string]string{"name": "laptop"}},
				}})
			}
		}
	}))
	defer srv.Close()

	sig, err := dialSignaller(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer sig.close()

	peer, err := sig.welcome(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "me", peer)

	id, err := sig.findProducer("laptop", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "p2", id)

	id, err = sig.findProducer("", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	_, err = sig.findProducer("garage", time.Second)
	assert.Error(t, err)
}
