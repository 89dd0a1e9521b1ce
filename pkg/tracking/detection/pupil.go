package detection

import (
	"math"

	"gocv.io/x/gocv"
)

// HoughLocator finds pupils as circles with the Hough gradient method.
type HoughLocator struct {
	dp        float64
	minDist   float64
	param1    float64
	param2    float64
	minRadius int
	maxRadius int
}

// NewHoughLocator creates a locator from the pupil fields of cfg.
func NewHoughLocator(cfg Config) *HoughLocator {
	return &HoughLocator{
		dp:        cfg.HoughDP,
		minDist:   cfg.PupilMinSeparation,
		param1:    cfg.HoughParam1,
		param2:    cfg.HoughParam2,
		minRadius: cfg.PupilMinRadius,
		maxRadius: cfg.PupilMaxRadius,
	}
}

// Locate returns the center of the first circle found in the eye crop.
// When several circles qualify the first one wins.
func (l *HoughLocator) Locate(eye *EyeObservation) (PupilPoint, bool) {
	if !eye.HasImage() {
		return PupilPoint{}, false
	}
	if img := eye.Image(); img.Empty() {
		return PupilPoint{}, false
	}

	circles := gocv.NewMat()
	defer circles.Close()

	gocv.HoughCirclesWithParams(eye.Image(), &circles, gocv.HoughGradient,
		l.dp, l.minDist, l.param1, l.param2, l.minRadius, l.maxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return PupilPoint{}, false
	}

	// 1xN matrix of (x, y, radius) triples
	return PupilPoint{
		X: int(math.RoundToEven(float64(circles.GetFloatAt(0, 0)))),
		Y: int(math.RoundToEven(float64(circles.GetFloatAt(0, 1)))),
	}, true
}
