package tracking

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

var validate = validator.New()

// Config holds all tunable parameters for gaze navigation
type Config struct {
	// Sensitivity scales both the orbit step and the zoom gain.
	Sensitivity int `json:"sensitivity" validate:"gte=0,lte=10"`

	// Smoothing
	SmoothingWindowSize int     `json:"smoothing_window_size" validate:"gte=1,lte=60"` // Gaze samples averaged per axis
	OffsetFactorX       float64 `json:"offset_factor_x" validate:"gt=0"`               // Scale of the horizontal offset
	OffsetFactorY       float64 `json:"offset_factor_y" validate:"gt=0"`               // Scale of the vertical offset
	RatioLimit          float64 `json:"ratio_limit" validate:"gt=0"`                   // Fused horizontal ratio above this is discarded

	// Zoom
	ZoomSampleCount int     `json:"zoom_sample_count" validate:"gte=1,lte=30"` // Frames measured per zoom cycle
	ZoomNormalizer  float64 `json:"zoom_normalizer" validate:"gt=0"`           // Face width divisor

	// Timing
	TickInterval time.Duration `json:"tick_interval" validate:"gt=0"` // One processing cycle per tick
	FrameTimeout time.Duration `json:"frame_timeout" validate:"gt=0"` // Max wait for a single frame

	Detection detection.Config `json:"detection"`
}

// DefaultConfig returns the recommended configuration for a laptop webcam
func DefaultConfig() Config {
	return Config{
		Sensitivity: DefaultSensitivity,

		// Smoothing - 5 samples per axis, offsets in [-8,8] x [-4,4]
		SmoothingWindowSize: 5,
		OffsetFactorX:       16,
		OffsetFactorY:       9,
		RatioLimit:          100,

		// Zoom - face width averaged over 5 frames, in thirds of a pixel
		ZoomSampleCount: 5,
		ZoomNormalizer:  3,

		// Timing - 20 cycles per second
		TickInterval: 50 * time.Millisecond,
		FrameTimeout: 200 * time.Millisecond,

		Detection: detection.DefaultConfig(),
	}
}

// SteadyConfig returns a configuration for slower, jitter-free navigation
func SteadyConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingWindowSize = 8
	cfg.ZoomSampleCount = 8
	cfg.TickInterval = 80 * time.Millisecond
	return cfg
}

// ResponsiveConfig returns a configuration that reacts within a few frames
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Sensitivity = 2
	cfg.SmoothingWindowSize = 2
	cfg.ZoomSampleCount = 3
	cfg.TickInterval = 33 * time.Millisecond
	return cfg
}

// Validate checks the configuration, including the detection settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("tracking config: %w", err)
	}
	return nil
}
