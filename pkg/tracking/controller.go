package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State of a gesture controller.
type State int

const (
	StateIdle State = iota
	StateTracking
)

func (s State) String() string {
	if s == StateTracking {
		return "tracking"
	}
	return "idle"
}

// Trigger is the gesture the host is holding during a tick.
// Only one gesture can be held at a time; any other value ends the
// current gesture.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerRotate
	TriggerZoom
)

func (t Trigger) String() string {
	switch t {
	case TriggerRotate:
		return "rotate"
	case TriggerZoom:
		return "zoom"
	default:
		return "none"
	}
}

// ParseTrigger parses "none", "rotate" or "zoom". An empty string is none.
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "", "none":
		return TriggerNone, nil
	case "rotate":
		return TriggerRotate, nil
	case "zoom":
		return TriggerZoom, nil
	}
	return TriggerNone, fmt.Errorf("tracking: unknown trigger %q", s)
}

// MarshalText encodes the trigger by name.
func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a trigger name.
func (t *Trigger) UnmarshalText(text []byte) error {
	v, err := ParseTrigger(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// GazeSampler yields one fused gaze sample per call.
type GazeSampler interface {
	SampleGaze(ctx context.Context) (GazeRatio, error)
}

// FaceMeter yields one normalized face size per call.
type FaceMeter interface {
	MeasureFace(ctx context.Context) (int, error)
}

// SessionInfo describes one held gesture.
type SessionInfo struct {
	ID      string    `json:"id"`
	Gesture Trigger   `json:"gesture"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended,omitempty"`
	Samples int       `json:"samples"`
	Intents int       `json:"intents"`
}

// session is the state owned by one held gesture.
type session struct {
	info        SessionInfo
	previous    float64
	hasPrevious bool
}

func newSession(gesture Trigger) *session {
	return &session{info: SessionInfo{
		ID:      uuid.NewString(),
		Gesture: gesture,
		Started: time.Now(),
	}}
}

// step stores v as the new baseline and returns the old one.
func (s *session) step(v float64) (previous float64, ok bool) {
	previous, ok = s.previous, s.hasPrevious
	s.previous, s.hasPrevious = v, true
	s.info.Samples++
	return previous, ok
}

func (s *session) emitted(in Intent) Intent {
	if !in.IsNone() {
		s.info.Intents++
	}
	return in
}

// gesture holds the Idle/Tracking lifecycle shared by both controllers.
type gesture struct {
	kind        Trigger
	state       State
	session     *session
	sensitivity int
	logger      *slog.Logger

	onStart func(SessionInfo)
	onEnd   func(SessionInfo)
}

// track moves to Tracking if needed and reports whether a session began.
func (g *gesture) track() bool {
	if g.state == StateTracking {
		return false
	}
	g.state = StateTracking
	g.session = newSession(g.kind)
	g.logger.Debug("session started", "gesture", g.kind, "session", g.session.info.ID)
	if g.onStart != nil {
		g.onStart(g.session.info)
	}
	return true
}

func (g *gesture) release() {
	if g.state == StateIdle {
		return
	}
	info := g.session.info
	info.Ended = time.Now()
	g.state = StateIdle
	g.session = nil
	g.logger.Debug("session ended", "gesture", g.kind, "session", info.ID, "intents", info.Intents)
	if g.onEnd != nil {
		g.onEnd(info)
	}
}

func (g *gesture) sampleFailed(err error) {
	if !IsNoSample(err) {
		g.logger.Warn("sample failed", "gesture", g.kind, "error", err)
	}
}

// RotationController turns smoothed horizontal gaze into orbit intents.
type RotationController struct {
	gesture
	sampler  GazeSampler
	smoother *Smoother
}

// NewRotationController creates an idle rotation controller.
func NewRotationController(config Config, sampler GazeSampler, logger *slog.Logger) *RotationController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RotationController{
		gesture: gesture{
			kind:        TriggerRotate,
			sensitivity: config.Sensitivity,
			logger:      logger,
		},
		sampler:  sampler,
		smoother: NewSmoother(config.SmoothingWindowSize, config.OffsetFactorX, config.OffsetFactorY),
	}
}

// Tick runs one cycle. held reports whether the rotate trigger is held.
func (c *RotationController) Tick(ctx context.Context, held bool) Intent {
	if !held {
		c.release()
		return None()
	}
	if c.track() {
		c.smoother.Reset()
	}

	ratio, err := c.sampler.SampleGaze(ctx)
	if err != nil {
		c.sampleFailed(err)
		return None()
	}

	c.smoother.Push(ratio)
	offset, _ := c.smoother.Offset()
	return c.observe(float64(offset.X))
}

// observe compares a smoothed horizontal sample with the session baseline.
func (c *RotationController) observe(x float64) Intent {
	previous, ok := c.session.step(x)
	switch {
	case !ok:
		return None()
	case x > previous:
		return c.session.emitted(OrbitRight(c.sensitivity))
	case x < previous:
		return c.session.emitted(OrbitLeft(c.sensitivity))
	default:
		return None()
	}
}

// ZoomController turns changes in face size into zoom intents.
type ZoomController struct {
	gesture
	meter FaceMeter
}

// NewZoomController creates an idle zoom controller.
func NewZoomController(config Config, meter FaceMeter, logger *slog.Logger) *ZoomController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoomController{
		gesture: gesture{
			kind:        TriggerZoom,
			sensitivity: config.Sensitivity,
			logger:      logger,
		},
		meter: meter,
	}
}

// Tick runs one cycle. held reports whether the zoom trigger is held.
func (c *ZoomController) Tick(ctx context.Context, held bool) Intent {
	if !held {
		c.release()
		return None()
	}
	c.track()

	width, err := c.meter.MeasureFace(ctx)
	if err != nil {
		c.sampleFailed(err)
		return None()
	}
	return c.observe(width)
}

// observe emits sensitivity x (previous - current) once a baseline exists.
// A face that shrinks moves the view away.
func (c *ZoomController) observe(width int) Intent {
	previous, ok := c.session.step(float64(width))
	if !ok {
		return None()
	}
	return c.session.emitted(ZoomBy(float64(c.sensitivity) * (previous - float64(width))))
}

// Navigator drives the rotation and zoom controllers from one trigger per tick.
// Callers must not call Tick concurrently.
type Navigator struct {
	rotation *RotationController
	zoom     *ZoomController

	mu             sync.Mutex
	onSessionStart func(SessionInfo)
	onSessionEnd   func(SessionInfo)
}

// NewNavigator creates a navigator over a gaze sampler and a face meter.
func NewNavigator(config Config, gaze GazeSampler, face FaceMeter, logger *slog.Logger) *Navigator {
	n := &Navigator{
		rotation: NewRotationController(config, gaze, logger),
		zoom:     NewZoomController(config, face, logger),
	}
	for _, g := range []*gesture{&n.rotation.gesture, &n.zoom.gesture} {
		g.onStart = n.sessionStarted
		g.onEnd = n.sessionEnded
	}
	return n
}

// OnSession registers callbacks for session start and end.
func (n *Navigator) OnSession(start, end func(SessionInfo)) {
	n.mu.Lock()
	n.onSessionStart, n.onSessionEnd = start, end
	n.mu.Unlock()
}

func (n *Navigator) sessionStarted(info SessionInfo) {
	n.mu.Lock()
	fn := n.onSessionStart
	n.mu.Unlock()
	if fn != nil {
		fn(info)
	}
}

func (n *Navigator) sessionEnded(info SessionInfo) {
	n.mu.Lock()
	fn := n.onSessionEnd
	n.mu.Unlock()
	if fn != nil {
		fn(info)
	}
}

// Tick runs one processing cycle for the held trigger. The gesture that is
// not held is released first, so switching gestures ends the old session
// before the new one starts.
func (n *Navigator) Tick(ctx context.Context, trigger Trigger) Intent {
	switch trigger {
	case TriggerRotate:
		n.zoom.Tick(ctx, false)
		return n.rotation.Tick(ctx, true)
	case TriggerZoom:
		n.rotation.Tick(ctx, false)
		return n.zoom.Tick(ctx, true)
	default:
		n.rotation.Tick(ctx, false)
		n.zoom.Tick(ctx, false)
		return None()
	}
}

// State returns Tracking while either gesture is held.
func (n *Navigator) State() State {
	if n.rotation.state == StateTracking || n.zoom.state == StateTracking {
		return StateTracking
	}
	return StateIdle
}

// Session returns the active session, if any.
func (n *Navigator) Session() (SessionInfo, bool) {
	switch {
	case n.rotation.session != nil:
		return n.rotation.session.info, true
	case n.zoom.session != nil:
		return n.zoom.session.info, true
	}
	return SessionInfo{}, false
}

// SetSensitivity updates the orbit step and zoom gain.
func (n *Navigator) SetSensitivity(s int) {
	s = clampInt(s, MinSensitivity, MaxSensitivity)
	n.rotation.sensitivity = s
	n.zoom.sensitivity = s
}

// Sensitivity returns the current sensitivity.
func (n *Navigator) Sensitivity() int {
	return n.rotation.sensitivity
}

// SetWindowSize resizes the gaze smoothing window.
func (n *Navigator) SetWindowSize(size int) {
	n.rotation.smoother.Resize(clampInt(size, 1, MaxWindowSize))
}

// WindowSize returns the gaze smoothing window capacity.
func (n *Navigator) WindowSize() int {
	return n.rotation.smoother.Size()
}
