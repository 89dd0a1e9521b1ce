package tracking

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-gazenav/pkg/debug"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

// ZoomEstimator measures the apparent face size over several frames.
type ZoomEstimator struct {
	frames       FrameSource
	faces        detection.FaceDetector
	normalizer   float64
	frameTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	samples int
}

// NewZoomEstimator creates a zoom estimator.
func NewZoomEstimator(config Config, frames FrameSource, faces detection.FaceDetector, logger *slog.Logger) *ZoomEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoomEstimator{
		frames:       frames,
		faces:        faces,
		normalizer:   config.ZoomNormalizer,
		frameTimeout: config.FrameTimeout,
		logger:       logger,
		samples:      config.ZoomSampleCount,
	}
}

// SetSampleCount changes how many frames one measurement reads.
func (z *ZoomEstimator) SetSampleCount(n int) {
	z.mu.Lock()
	z.samples = clampInt(n, 1, MaxZoomSamples)
	z.mu.Unlock()
}

// SampleCount returns how many frames one measurement reads.
func (z *ZoomEstimator) SampleCount() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.samples
}

// MeasureFace reads SampleCount frames and returns the rounded mean face
// width divided by the normalizer. Frames without a face are skipped;
// if none had one the error is detection.ErrNoFace.
func (z *ZoomEstimator) MeasureFace(ctx context.Context) (int, error) {
	n := z.SampleCount()
	widths := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		if w, ok := z.measureOne(ctx); ok {
			widths = append(widths, float64(w))
		}
	}

	if len(widths) == 0 {
		return 0, detection.ErrNoFace
	}

	size := int(math.RoundToEven(stat.Mean(widths, nil) / z.normalizer))
	debug.DetectLog("🔍 face size %d from %d/%d frames\n", size, len(widths), n)
	return size, nil
}

func (z *ZoomEstimator) measureOne(ctx context.Context) (int, bool) {
	frame, err := readFrame(ctx, z.frames, z.frameTimeout)
	if err != nil {
		if !IsNoSample(err) {
			z.logger.Debug("zoom frame read failed", "error", err)
		}
		return 0, false
	}
	defer frame.Close()

	face, err := z.faces.DetectFace(frame.Mat())
	if err != nil {
		return 0, false
	}
	return face.W, true
}
