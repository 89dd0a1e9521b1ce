package tracking

import (
	"errors"

	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

var (
	// ErrNoPupil is returned when neither eye yielded a pupil.
	ErrNoPupil = errors.New("tracking: no pupil")

	// ErrImplausibleRatio is returned when the fused ratio exceeds the sanity limit.
	ErrImplausibleRatio = errors.New("tracking: implausible gaze ratio")
)

// IsNoSample reports whether err only means "nothing usable this cycle".
// Such errors are absorbed by the controllers and never surfaced.
func IsNoSample(err error) bool {
	return errors.Is(err, camera.ErrNoFrame) ||
		errors.Is(err, detection.ErrNoFace) ||
		errors.Is(err, detection.ErrAmbiguousFace) ||
		errors.Is(err, detection.ErrEmptyFrame) ||
		errors.Is(err, ErrNoPupil) ||
		errors.Is(err, ErrImplausibleRatio)
}
