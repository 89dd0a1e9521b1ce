package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

// FrameSource supplies frames on demand
type FrameSource interface {
	NextFrame(ctx context.Context) (camera.Frame, error)
}

// IntentSink receives navigation intents, typically the host viewport
type IntentSink interface {
	Apply(ctx context.Context, intent Intent) error
}

// StateUpdater interface for updating dashboard state
type StateUpdater interface {
	UpdateStatus(status Status)
	AddLog(logType, message string)
}

// Recorder persists sessions and the intents they produced
type Recorder interface {
	StartSession(ctx context.Context, info SessionInfo) error
	EndSession(ctx context.Context, info SessionInfo) error
	RecordIntent(ctx context.Context, sessionID string, intent Intent) error
}

// Status is a snapshot of the tracker for dashboards and the host link.
type Status struct {
	Enabled     bool      `json:"enabled"`
	Running     bool      `json:"running"`
	State       string    `json:"state"`
	Trigger     Trigger   `json:"trigger"`
	Sensitivity int       `json:"sensitivity"`
	WindowSize  int       `json:"window_size"`
	SessionID   string    `json:"session_id,omitempty"`
	LastIntent  Intent    `json:"last_intent"`
	Ticks       uint64    `json:"ticks"`
	Misses      int       `json:"misses"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tracker runs the gaze navigation loop
type Tracker struct {
	config     Config
	navigator  *Navigator
	perception *Perception
	zoom       *ZoomEstimator

	sinks    []IntentSink
	state    StateUpdater
	recorder Recorder
	logger   *slog.Logger

	// State
	mu         sync.RWMutex
	lastIntent Intent
	ticks      uint64
	trigger    atomic.Int32
	enabled    atomic.Bool
	isRunning  atomic.Bool

	tickReset chan time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithSink adds an intent sink.
func WithSink(s IntentSink) Option {
	return func(t *Tracker) {
		t.sinks = append(t.sinks, s)
	}
}

// WithStateUpdater sets the dashboard state updater.
func WithStateUpdater(s StateUpdater) Option {
	return func(t *Tracker) {
		t.state = s
	}
}

// WithRecorder sets the session recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) {
		t.recorder = r
	}
}

// New creates a tracker. regions and locator serve the rotation gesture,
// faces the zoom gesture; all read from the same frame source.
func New(config Config, frames FrameSource, regions detection.RegionDetector, faces detection.FaceDetector, locator detection.PupilLocator, opts ...Option) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if frames == nil || regions == nil || faces == nil || locator == nil {
		return nil, fmt.Errorf("tracking: frame source and detectors are required")
	}

	t := &Tracker{
		config:    config,
		logger:    slog.Default(),
		tickReset: make(chan time.Duration, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tracker")

	t.perception = NewPerception(config, frames, regions, locator, t.logger)
	t.zoom = NewZoomEstimator(config, frames, faces, t.logger)
	t.navigator = NewNavigator(config, t.perception, t.zoom, t.logger)
	t.navigator.OnSession(t.sessionStarted, t.sessionEnded)
	t.enabled.Store(true)

	return t, nil
}

// SetStateUpdater sets the dashboard state updater
func (t *Tracker) SetStateUpdater(state StateUpdater) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// AddSink adds an intent sink after construction.
func (t *Tracker) AddSink(s IntentSink) {
	t.mu.Lock()
	t.sinks = append(t.sinks, s)
	t.mu.Unlock()
}

// SetTrigger records the gesture the host is holding. It takes effect on
// the next tick.
func (t *Tracker) SetTrigger(trigger Trigger) {
	t.trigger.Store(int32(trigger))
}

// Trigger returns the trigger the next tick will use. It is always none
// while the tracker is disabled.
func (t *Tracker) Trigger() Trigger {
	if !t.enabled.Load() {
		return TriggerNone
	}
	return Trigger(t.trigger.Load())
}

// SetEnabled switches gaze navigation on or off. Disabling ends any
// active session on the next tick.
func (t *Tracker) SetEnabled(enabled bool) {
	if t.enabled.Swap(enabled) != enabled {
		t.logger.Info("gaze navigation toggled", "enabled", enabled)

		t.mu.RLock()
		state := t.state
		t.mu.RUnlock()
		addLog(state, "status", fmt.Sprintf("Gaze navigation enabled=%v", enabled))
	}
}

// Enabled reports whether gaze navigation is on.
func (t *Tracker) Enabled() bool {
	return t.enabled.Load()
}

// Perception returns the gaze pipeline, for diagnostics.
func (t *Tracker) Perception() *Perception {
	return t.perception
}

// Run ticks until ctx is cancelled, then ends any active session.
func (t *Tracker) Run(ctx context.Context) {
	t.mu.RLock()
	interval := t.config.TickInterval
	t.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.isRunning.Store(true)
	defer t.isRunning.Store(false)

	t.logger.Info("gaze tracker started",
		"tick", interval,
		"sensitivity", t.Status().Sensitivity,
		"window", t.Status().WindowSize)

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.navigator.Tick(context.Background(), TriggerNone)
			t.mu.Unlock()
			t.logger.Info("gaze tracker stopped")
			return

		case d := <-t.tickReset:
			ticker.Reset(d)

		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs one processing cycle and dispatches the resulting intent.
func (t *Tracker) Tick(ctx context.Context) Intent {
	trigger := t.Trigger()

	t.mu.Lock()
	intent := t.navigator.Tick(ctx, trigger)
	t.ticks++
	if !intent.IsNone() {
		t.lastIntent = intent
	}
	session, _ := t.navigator.Session()
	state := t.state
	t.mu.Unlock()

	if !intent.IsNone() {
		t.dispatch(ctx, session.ID, intent)
	}

	if state != nil {
		state.UpdateStatus(t.Status())
	}
	return intent
}

func (t *Tracker) dispatch(ctx context.Context, sessionID string, intent Intent) {
	t.mu.RLock()
	sinks := t.sinks
	recorder := t.recorder
	t.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Apply(ctx, intent); err != nil {
			t.logger.Warn("intent sink failed", "intent", intent.String(), "error", err)
		}
	}
	if recorder != nil && sessionID != "" {
		if err := recorder.RecordIntent(ctx, sessionID, intent); err != nil {
			t.logger.Warn("record intent failed", "error", err)
		}
	}
}

// sessionStarted and sessionEnded run inside navigator.Tick, which is only
// called with t.mu held.
func (t *Tracker) sessionStarted(info SessionInfo) {
	t.logger.Info("gesture started", "gesture", info.Gesture, "session", info.ID)
	addLog(t.state, "session", fmt.Sprintf("%s started", info.Gesture))
	if t.recorder != nil {
		if err := t.recorder.StartSession(context.Background(), info); err != nil {
			t.logger.Warn("record session start failed", "error", err)
		}
	}
}

func (t *Tracker) sessionEnded(info SessionInfo) {
	t.logger.Info("gesture ended",
		"gesture", info.Gesture,
		"session", info.ID,
		"samples", info.Samples,
		"intents", info.Intents,
		"duration", info.Ended.Sub(info.Started).Round(time.Millisecond))
	addLog(t.state, "session", fmt.Sprintf("%s ended after %d intents", info.Gesture, info.Intents))
	if t.recorder != nil {
		if err := t.recorder.EndSession(context.Background(), info); err != nil {
			t.logger.Warn("record session end failed", "error", err)
		}
	}
}

func addLog(state StateUpdater, logType, message string) {
	if state != nil {
		state.AddLog(logType, message)
	}
}

// Status returns a snapshot of the tracker.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	session, _ := t.navigator.Session()
	return Status{
		Enabled:     t.enabled.Load(),
		Running:     t.isRunning.Load(),
		State:       t.navigator.State().String(),
		Trigger:     t.Trigger(),
		Sensitivity: t.navigator.Sensitivity(),
		WindowSize:  t.navigator.WindowSize(),
		SessionID:   session.ID,
		LastIntent:  t.lastIntent,
		Ticks:       t.ticks,
		Misses:      t.perception.GetConsecutiveMisses(),
		UpdatedAt:   time.Now(),
	}
}
