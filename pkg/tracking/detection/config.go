package detection

import (
	"fmt"
	"image"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CascadeParams holds detectMultiScale tuning for one Haar cascade.
// Sizes of zero mean "unbounded".
type CascadeParams struct {
	ScaleFactor  float64 `json:"scale_factor" validate:"gt=1"`
	MinNeighbors int     `json:"min_neighbors" validate:"gte=0"`
	MinWidth     int     `json:"min_width" validate:"gte=0"`
	MinHeight    int     `json:"min_height" validate:"gte=0"`
	MaxWidth     int     `json:"max_width" validate:"gte=0"`
	MaxHeight    int     `json:"max_height" validate:"gte=0"`
}

// MinSize returns the minimum object size.
func (p CascadeParams) MinSize() image.Point {
	return image.Pt(p.MinWidth, p.MinHeight)
}

// MaxSize returns the maximum object size.
func (p CascadeParams) MaxSize() image.Point {
	return image.Pt(p.MaxWidth, p.MaxHeight)
}

// Config holds detector configuration
type Config struct {
	FaceCascadePath string `json:"face_cascade_path" validate:"required"`
	EyeCascadePath  string `json:"eye_cascade_path" validate:"required"`

	// Face is used on the gaze path, ZoomFace on the face-size path.
	Face     CascadeParams `json:"face"`
	ZoomFace CascadeParams `json:"zoom_face"`
	Eye      CascadeParams `json:"eye"`

	// Hough circle search inside eye crops
	PupilMinRadius     int     `json:"pupil_min_radius" validate:"gte=0"`
	PupilMaxRadius     int     `json:"pupil_max_radius" validate:"gtefield=PupilMinRadius"`
	PupilMinSeparation float64 `json:"pupil_min_separation" validate:"gt=0"`
	HoughDP            float64 `json:"hough_dp" validate:"gt=0"`
	HoughParam1        float64 `json:"hough_param1" validate:"gt=0"` // Canny high threshold
	HoughParam2        float64 `json:"hough_param2" validate:"gt=0"` // accumulator threshold

	// Optional YuNet face model for the face-size path
	YuNetModelPath   string  `json:"yunet_model_path,omitempty"`
	ConfidenceThresh float64 `json:"confidence_thresh" validate:"gte=0,lte=1"`
	InputWidth       int     `json:"input_width" validate:"gte=0"`
	InputHeight      int     `json:"input_height" validate:"gte=0"`
}

// DefaultConfig returns the cascade parameters tuned for a laptop webcam
// at 640x480 with the user roughly an arm's length away.
func DefaultConfig() Config {
	return Config{
		FaceCascadePath: "models/haarcascade_frontalface_default.xml",
		EyeCascadePath:  "models/haarcascade_eye.xml",

		Face: CascadeParams{
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinWidth:     50,
			MinHeight:    70,
		},
		ZoomFace: CascadeParams{
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinWidth:     100,
			MinHeight:    100,
			MaxWidth:     250,
			MaxHeight:    250,
		},
		Eye: CascadeParams{
			ScaleFactor:  1.2,
			MinNeighbors: 10,
		},

		PupilMinRadius:     7,
		PupilMaxRadius:     20,
		PupilMinSeparation: 40,
		HoughDP:            1,
		HoughParam1:        100,
		HoughParam2:        13,

		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("detection config: %w", err)
	}
	return nil
}
