package tracking

import "time"

// TuningParams holds the real-time adjustable navigation parameters.
// These can be modified via the tuning API without restarting.
type TuningParams struct {
	// Activation
	Enabled *bool `json:"enabled,omitempty"` // Gaze navigation on/off

	// Gain (0 is a valid sensitivity, hence the pointer)
	Sensitivity *int `json:"sensitivity,omitempty"` // Orbit step and zoom gain (0-10)

	// Smoothing
	SmoothingWindowSize int `json:"smoothing_window_size,omitempty"` // Gaze samples per axis (1-60)
	ZoomSampleCount     int `json:"zoom_sample_count,omitempty"`     // Frames per zoom measurement (1-30)

	// Processing rate
	TickHz float64 `json:"tick_hz,omitempty"` // Cycles per second (1-60)
}

// GetTuningParams returns current tuning parameters from the tracker.
func (t *Tracker) GetTuningParams() TuningParams {
	t.mu.RLock()
	defer t.mu.RUnlock()

	enabled := t.enabled.Load()
	sensitivity := t.navigator.Sensitivity()

	return TuningParams{
		Enabled:             &enabled,
		Sensitivity:         &sensitivity,
		SmoothingWindowSize: t.navigator.WindowSize(),
		ZoomSampleCount:     t.zoom.SampleCount(),
		TickHz:              1.0 / t.config.TickInterval.Seconds(),
	}
}

// SetTuningParams updates tuning parameters at runtime.
// Only set values are applied; out-of-range values are clamped.
func (t *Tracker) SetTuningParams(params TuningParams) {
	if params.Enabled != nil {
		t.SetEnabled(*params.Enabled)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if params.Sensitivity != nil {
		t.navigator.SetSensitivity(*params.Sensitivity)
		t.config.Sensitivity = t.navigator.Sensitivity()
	}
	if params.SmoothingWindowSize > 0 {
		t.navigator.SetWindowSize(params.SmoothingWindowSize)
		t.config.SmoothingWindowSize = t.navigator.WindowSize()
	}
	if params.ZoomSampleCount > 0 {
		t.zoom.SetSampleCount(params.ZoomSampleCount)
		t.config.ZoomSampleCount = t.zoom.SampleCount()
	}

	// Tick rate (handled by Run via channel)
	if params.TickHz > 0 {
		t.setTickHz(params.TickHz)
	}
}

// setTickHz updates the processing rate at runtime. Caller holds t.mu.
func (t *Tracker) setTickHz(hz float64) {
	hz = clamp(hz, MinTickHz, MaxTickHz)
	interval := time.Duration(float64(time.Second) / hz)
	t.config.TickInterval = interval

	// Non-blocking: a pending update is replaced by the next one
	select {
	case t.tickReset <- interval:
	default:
		select {
		case <-t.tickReset:
		default:
		}
		select {
		case t.tickReset <- interval:
		default:
		}
	}
}
