package tracking

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/debug"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

// Observation is everything one gaze pass found in a frame.
type Observation struct {
	Face  detection.BoundingBox `json:"face"`
	Left  *EyeSample            `json:"left,omitempty"`
	Right *EyeSample            `json:"right,omitempty"`
	Ratio GazeRatio             `json:"ratio"`
	At    time.Time             `json:"at"`
}

// Perception turns frames into fused gaze samples
type Perception struct {
	frames       FrameSource
	regions      detection.RegionDetector
	locator      detection.PupilLocator
	fuser        Fuser
	frameTimeout time.Duration
	logger       *slog.Logger

	// Detection state
	consecutiveMisses atomic.Int64
}

// NewPerception creates a new perception pipeline
func NewPerception(config Config, frames FrameSource, regions detection.RegionDetector, locator detection.PupilLocator, logger *slog.Logger) *Perception {
	if logger == nil {
		logger = slog.Default()
	}
	return &Perception{
		frames:       frames,
		regions:      regions,
		locator:      locator,
		fuser:        NewFuser(config.RatioLimit),
		frameTimeout: config.FrameTimeout,
		logger:       logger,
	}
}

// SampleGaze reads one frame and returns the fused gaze ratio.
func (p *Perception) SampleGaze(ctx context.Context) (GazeRatio, error) {
	obs, err := p.Observe(ctx)
	if err != nil {
		return GazeRatio{}, err
	}
	return obs.Ratio, nil
}

// Observe reads one frame and runs the face, eye and pupil passes over it.
// On error the returned observation holds whatever geometry was found.
func (p *Perception) Observe(ctx context.Context) (Observation, error) {
	frame, err := readFrame(ctx, p.frames, p.frameTimeout)
	if err != nil {
		p.miss()
		return Observation{}, err
	}
	defer frame.Close()

	regions, err := p.regions.DetectEyes(frame.Mat())
	if err != nil {
		p.miss()
		return Observation{}, err
	}
	defer regions.Close()

	obs := Observation{Face: regions.Face, At: frame.Captured}
	obs.Left = p.locate(regions.Left)
	obs.Right = p.locate(regions.Right)

	obs.Ratio, err = p.fuser.Fuse(obs.Left, obs.Right)
	if err != nil {
		p.miss()
		return obs, err
	}

	debug.DetectLog("👁️  gaze x=%.1f y=%.1f (left=%v right=%v)\n",
		obs.Ratio.X, obs.Ratio.Y, obs.Left != nil, obs.Right != nil)

	p.consecutiveMisses.Store(0)
	return obs, nil
}

func (p *Perception) locate(eye *detection.EyeObservation) *EyeSample {
	if eye == nil {
		return nil
	}
	pupil, ok := p.locator.Locate(eye)
	if !ok {
		return nil
	}
	return &EyeSample{Box: eye.Box, Pupil: pupil}
}

func (p *Perception) miss() {
	if n := p.consecutiveMisses.Add(1); n == 20 {
		p.logger.Debug("gaze lost", "consecutive_misses", n)
	}
}

// GetConsecutiveMisses returns how many consecutive gaze samples have failed
func (p *Perception) GetConsecutiveMisses() int {
	return int(p.consecutiveMisses.Load())
}

// readFrame pulls one frame, bounded by timeout.
func readFrame(ctx context.Context, frames FrameSource, timeout time.Duration) (camera.Frame, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return frames.NextFrame(ctx)
}
