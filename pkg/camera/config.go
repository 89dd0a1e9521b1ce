// Package camera provides frame sources and runtime-configurable capture
// settings for the gaze navigator.
// This follows the same pattern as pkg/tracking for tunable parameters.
package camera

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds capture settings.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width     int `json:"width" validate:"min=160,max=3840"`   // Frame width in pixels
	Height    int `json:"height" validate:"min=120,max=2160"`  // Frame height in pixels
	Framerate int `json:"framerate" validate:"min=1,max=120"` // Target FPS

	// === Image ===
	// Mirror flips frames horizontally so that looking left moves the
	// pupil left in the image, as in a selfie preview.
	Mirror bool `json:"mirror"`

	// Brightness and Contrast are passed to the capture driver when set.
	// Zero leaves the driver default.
	Brightness float64 `json:"brightness" validate:"min=0,max=255"`
	Contrast   float64 `json:"contrast" validate:"min=0,max=255"`

	// === Transport ===
	// SnapshotTimeout bounds a single HTTP snapshot request.
	SnapshotTimeout time.Duration `json:"snapshot_timeout" validate:"min=0"`

	// MaxSnapshotBytes rejects oversized snapshot bodies.
	MaxSnapshotBytes int64 `json:"max_snapshot_bytes" validate:"min=1024"`
}

// DefaultConfig returns a webcam configuration suited to eye detection.
// 640x480 keeps cascades fast while leaving eye crops large enough for
// the pupil radius range.
func DefaultConfig() Config {
	return Config{
		Width:            640,
		Height:           480,
		Framerate:        30,
		Mirror:           false,
		SnapshotTimeout:  time.Second,
		MaxSnapshotBytes: 8 << 20,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("camera config: %w", err)
	}
	return nil
}
