package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-gazenav/pkg/camera"
)

// Config holds remote camera settings.
type Config struct {
	SignallingURL  string        // e.g. "ws://camera.local:8443"
	Producer       string        // producer "name" meta; empty picks the first
	DecodeInterval time.Duration // minimum time between decodes
	ConnectTimeout time.Duration // time allowed for the first video track
}

// DefaultConfig returns settings for the signalling server at url.
func DefaultConfig(url string) Config {
	return Config{
		SignallingURL:  url,
		DecodeInterval: 50 * time.Millisecond,
		ConnectTimeout: 15 * time.Second,
	}
}

// Source receives a remote camera over WebRTC and implements camera.Source.
type Source struct {
	cfg     Config
	logger  *slog.Logger
	decoder Decoder

	sig *signaller
	pc  *webrtc.PeerConnection

	sessionMu sync.Mutex
	sessionID string

	// Latest decoded JPEG; updated is closed and replaced on each publish
	frameMu sync.Mutex
	latest  []byte
	seq     uint64
	read    uint64
	updated chan struct{}

	decoding   atomic.Bool
	lastDecode time.Time

	trackReady chan struct{}
	closed     atomic.Bool
	done       chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// WithDecoder replaces the ffmpeg decoder.
func WithDecoder(d Decoder) Option {
	return func(s *Source) {
		s.decoder = d
	}
}

func newSource(cfg Config, opts ...Option) *Source {
	s := &Source{
		cfg:        cfg,
		logger:     slog.Default(),
		decoder:    NewFFmpegDecoder(),
		updated:    make(chan struct{}),
		trackReady: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "video", "url", cfg.SignallingURL)
	return s
}

// Connect negotiates a receive-only session with the producer and waits
// for its video track.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Source, error) {
	s := newSource(cfg, opts...)

	sig, err := dialSignaller(ctx, cfg.SignallingURL)
	if err != nil {
		return nil, err
	}
	s.sig = sig

	if err := s.negotiate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) negotiate(ctx context.Context) error {
	peerID, err := s.sig.welcome(10 * time.Second)
	if err != nil {
		return fmt.Errorf("welcome failed: %w", err)
	}
	s.logger.Debug("signalling welcome", "peer", peerID)

	producerID, err := s.sig.findProducer(s.cfg.Producer, 5*time.Second)
	if err != nil {
		return fmt.Errorf("find producer failed: %w", err)
	}

	if err := s.createPeerConnection(); err != nil {
		return fmt.Errorf("peer connection failed: %w", err)
	}

	if err := s.sig.send(sigMessage{Type: "startSession", PeerID: producerID}); err != nil {
		return fmt.Errorf("start session failed: %w", err)
	}

	go s.handleSignalling()

	select {
	case <-s.trackReady:
		s.logger.Info("video connected", "producer", producerID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.ConnectTimeout):
		return errors.New("timeout waiting for video")
	}
}

func (s *Source) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	s.pc = pc

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.logger.Info("got track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go s.handleVideoTrack(track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			s.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Debug("connection state", "state", state.String())
	})

	return nil
}

func (s *Source) handleSignalling() {
	for !s.closed.Load() {
		msg, err := s.sig.read(0)
		if err != nil {
			if !s.closed.Load() {
				s.logger.Warn("signalling error", "error", err)
			}
			return
		}

		switch msg.Type {
		case "sessionStarted":
			s.sessionMu.Lock()
			s.sessionID = msg.SessionID
			s.sessionMu.Unlock()

		case "peer":
			s.handlePeerMessage(msg)

		case "endSession":
			s.logger.Info("producer ended session")
			return
		}
	}
}

func (s *Source) handlePeerMessage(msg sigMessage) {
	if msg.SDP != nil && msg.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP.SDP}
		if err := s.answer(offer); err != nil {
			s.logger.Error("answer failed", "error", err)
		}
	}

	if msg.ICE != nil {
		if err := s.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     msg.ICE.Candidate,
			SDPMid:        msg.ICE.SDPMid,
			SDPMLineIndex: msg.ICE.SDPMLineIndex,
		}); err != nil {
			s.logger.Debug("add ICE candidate failed", "error", err)
		}
	}
}

func (s *Source) answer(offer webrtc.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	return s.sig.send(sigMessage{
		Type:      "peer",
		SessionID: s.session(),
		SDP:       &sdpPayload{Type: answer.Type.String(), SDP: answer.SDP},
	})
}

func (s *Source) sendICECandidate(candidate *webrtc.ICECandidate) {
	sessionID := s.session()
	if sessionID == "" {
		return
	}

	init := candidate.ToJSON()
	s.sig.send(sigMessage{
		Type:      "peer",
		SessionID: sessionID,
		ICE: &icePayload{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		},
	})
}

func (s *Source) session() string {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.sessionID
}

func (s *Source) handleVideoTrack(track *webrtc.TrackRemote) {
	select {
	case s.trackReady <- struct{}{}:
	default:
	}

	asm := newAssembler(0)
	for !s.closed.Load() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if !asm.push(pkt) || time.Since(s.lastDecode) < s.cfg.DecodeInterval {
			continue
		}

		// One decode at a time; RTP reading must not stall behind ffmpeg
		if !s.decoding.CompareAndSwap(false, true) {
			continue
		}
		s.lastDecode = time.Now()
		go s.decode(asm.stream())
	}
}

func (s *Source) decode(stream []byte) {
	defer s.decoding.Store(false)

	jpeg, err := s.decoder.Decode(context.Background(), stream)
	if err != nil {
		if !errors.Is(err, ErrIncomplete) {
			s.logger.Debug("decode failed", "error", err)
		}
		return
	}
	s.publish(jpeg)
}

// publish stores jpeg as the latest frame unless it is blank.
func (s *Source) publish(jpeg []byte) {
	frame, err := camera.Decode(jpeg)
	if err != nil {
		return
	}
	blank := isBlank(&frame)
	frame.Close()
	if blank {
		return
	}

	s.frameMu.Lock()
	s.latest = jpeg
	s.seq++
	close(s.updated)
	s.updated = make(chan struct{})
	s.frameMu.Unlock()
}

// NextFrame returns a frame newer than the one previously returned,
// waiting for one if needed.
func (s *Source) NextFrame(ctx context.Context) (camera.Frame, error) {
	for {
		if s.closed.Load() {
			return camera.Frame{}, camera.ErrClosed
		}

		s.frameMu.Lock()
		if s.seq > s.read {
			data := s.latest
			s.read = s.seq
			s.frameMu.Unlock()
			return camera.Decode(data)
		}
		updated := s.updated
		s.frameMu.Unlock()

		select {
		case <-updated:
		case <-ctx.Done():
			return camera.Frame{}, camera.ErrNoFrame
		case <-s.done:
			return camera.Frame{}, camera.ErrClosed
		}
	}
}

// Close tears down the peer connection and signalling socket.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	var errs []error
	if s.pc != nil {
		errs = append(errs, s.pc.Close())
	}
	if s.sig != nil {
		errs = append(errs, s.sig.close())
	}
	return errors.Join(errs...)
}
