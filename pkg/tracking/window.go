package tracking

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Window is a fixed-capacity FIFO of samples.
type Window struct {
	capacity int
	samples  []float64
}

// NewWindow creates an empty window. Capacities below 1 become 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{capacity: capacity, samples: make([]float64, 0, capacity)}
}

// Push appends v, evicting the oldest sample when full.
func (w *Window) Push(v float64) {
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.capacity-1]
	}
	w.samples = append(w.samples, v)
}

// Mean returns the arithmetic mean, or false when empty.
func (w *Window) Mean() (float64, bool) {
	if len(w.samples) == 0 {
		return 0, false
	}
	return stat.Mean(w.samples, nil), true
}

// Len returns the number of samples held.
func (w *Window) Len() int { return len(w.samples) }

// Cap returns the capacity.
func (w *Window) Cap() int { return w.capacity }

// Full reports whether the window holds Cap samples.
func (w *Window) Full() bool { return len(w.samples) == w.capacity }

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	return append([]float64(nil), w.samples...)
}

// Reset drops all samples.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}

// Resize changes the capacity, keeping the newest samples that fit.
func (w *Window) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	kept := w.samples
	if len(kept) > capacity {
		kept = kept[len(kept)-capacity:]
	}
	samples := make([]float64, len(kept), capacity)
	copy(samples, kept)
	w.capacity = capacity
	w.samples = samples
}

// Offset is the smoothed gaze mapped around the eye center and scaled.
// Zero means looking straight ahead.
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Smoother averages gaze ratios over a window per axis.
type Smoother struct {
	x, y             *Window
	factorX, factorY float64
}

// NewSmoother creates a smoother with the given window size and offset scale.
func NewSmoother(size int, factorX, factorY float64) *Smoother {
	return &Smoother{
		x:       NewWindow(size),
		y:       NewWindow(size),
		factorX: factorX,
		factorY: factorY,
	}
}

// Push adds one fused sample.
func (s *Smoother) Push(r GazeRatio) {
	s.x.Push(r.X)
	s.y.Push(r.Y)
}

// Value returns the per-axis mean, or false before the first sample.
func (s *Smoother) Value() (GazeRatio, bool) {
	mx, ok := s.x.Mean()
	if !ok {
		return GazeRatio{}, false
	}
	my, _ := s.y.Mean()
	return GazeRatio{X: mx, Y: my}, true
}

// Offset returns round((mean/100 - 0.5) * factor) per axis.
func (s *Smoother) Offset() (Offset, bool) {
	v, ok := s.Value()
	if !ok {
		return Offset{}, false
	}
	return Offset{
		X: int(math.RoundToEven((v.X/100 - 0.5) * s.factorX)),
		Y: int(math.RoundToEven((v.Y/100 - 0.5) * s.factorY)),
	}, true
}

// Len returns the number of samples in the window.
func (s *Smoother) Len() int { return s.x.Len() }

// Size returns the window capacity.
func (s *Smoother) Size() int { return s.x.Cap() }

// Resize changes the window capacity on both axes.
func (s *Smoother) Resize(size int) {
	s.x.Resize(size)
	s.y.Resize(size)
}

// Reset empties both windows.
func (s *Smoother) Reset() {
	s.x.Reset()
	s.y.Reset()
}
