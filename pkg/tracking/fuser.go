package tracking

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

// GazeRatio is the pupil position as a percentage of the eye box,
// roughly 0-100 on each axis.
type GazeRatio struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EyeSample is one eye box with the pupil found inside it.
type EyeSample struct {
	Box   detection.BoundingBox `json:"box"`
	Pupil detection.PupilPoint  `json:"pupil"`
}

// percent returns the pupil position as a percentage of the box size.
func (s EyeSample) percent() GazeRatio {
	return GazeRatio{
		X: float64(s.Pupil.X) / float64(s.Box.W) * 100,
		Y: float64(s.Pupil.Y) / float64(s.Box.H) * 100,
	}
}

// Fuser combines per-eye samples into one gaze ratio.
type Fuser struct {
	// RatioLimit discards fused horizontal values above it.
	RatioLimit float64
}

// NewFuser creates a fuser with the given sanity limit.
func NewFuser(limit float64) Fuser {
	return Fuser{RatioLimit: limit}
}

// Fuse combines up to two samples. A nil sample, or one whose box has no
// area, is unavailable. With one sample its percentage is used as is; with
// two the per-axis average is rounded to the nearest integer.
func (f Fuser) Fuse(left, right *EyeSample) (GazeRatio, error) {
	left, right = usable(left), usable(right)

	var ratio GazeRatio
	switch {
	case left == nil && right == nil:
		return GazeRatio{}, ErrNoPupil
	case right == nil:
		ratio = left.percent()
	case left == nil:
		ratio = right.percent()
	default:
		l, r := left.percent(), right.percent()
		ratio = GazeRatio{
			X: math.RoundToEven((l.X + r.X) / 2),
			Y: math.RoundToEven((l.Y + r.Y) / 2),
		}
	}

	if ratio.X > f.RatioLimit {
		return GazeRatio{}, fmt.Errorf("%w: x=%.1f", ErrImplausibleRatio, ratio.X)
	}
	return ratio, nil
}

func usable(s *EyeSample) *EyeSample {
	if s == nil || !s.Box.Valid() {
		return nil
	}
	return s
}
