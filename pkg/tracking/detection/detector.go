// Package detection locates faces, eyes and pupils in camera frames.
//
// All geometry is in integer pixel coordinates of the frame it was detected
// in. Detectors never mutate the frame they are given.
package detection

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

var (
	// ErrNoFace is returned when no face candidate was found.
	ErrNoFace = errors.New("detection: no face")

	// ErrAmbiguousFace is returned when more than one face candidate was found.
	ErrAmbiguousFace = errors.New("detection: more than one face")

	// ErrEmptyFrame is returned for frames without pixels.
	ErrEmptyFrame = errors.New("detection: empty frame")
)

// BoundingBox is a rectangle in pixel coordinates.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BoxFromRect converts an image.Rectangle.
func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Valid reports whether the box has a positive area.
func (b BoundingBox) Valid() bool {
	return b.W > 0 && b.H > 0
}

// CenterX returns the horizontal center.
func (b BoundingBox) CenterX() float64 {
	return float64(b.X) + float64(b.W)/2
}

// Contains reports whether other lies entirely inside b.
func (b BoundingBox) Contains(other BoundingBox) bool {
	return other.X >= b.X && other.Y >= b.Y &&
		other.X+other.W <= b.X+b.W &&
		other.Y+other.H <= b.Y+b.H
}

// Within reports whether the box is valid and fits in a width x height frame.
func (b BoundingBox) Within(width, height int) bool {
	return b.Valid() && b.X >= 0 && b.Y >= 0 && b.X+b.W <= width && b.Y+b.H <= height
}

// PupilPoint is a pupil center relative to its eye sub-image origin.
type PupilPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// EyeObservation is an eye box together with its grayscale crop.
// The crop is owned by the observation and released with Close.
type EyeObservation struct {
	Box BoundingBox

	image gocv.Mat
	owned bool
}

// NewEyeObservation wraps a crop. The observation takes ownership of img.
func NewEyeObservation(box BoundingBox, img gocv.Mat) *EyeObservation {
	return &EyeObservation{Box: box, image: img, owned: true}
}

// Image returns the grayscale crop. HasImage must be checked first.
func (e *EyeObservation) Image() gocv.Mat {
	return e.image
}

// HasImage reports whether the observation carries a crop.
func (e *EyeObservation) HasImage() bool {
	return e != nil && e.owned
}

// Close releases the crop. Safe to call on observations without one.
func (e *EyeObservation) Close() error {
	if e == nil || !e.owned {
		return nil
	}
	e.owned = false
	return e.image.Close()
}

// Regions is the result of a face + eyes pass over one frame.
type Regions struct {
	Face  BoundingBox
	Left  *EyeObservation
	Right *EyeObservation
}

// Close releases both eye crops.
func (r *Regions) Close() {
	r.Left.Close()
	r.Right.Close()
}

// FaceDetector finds the single face in a frame.
type FaceDetector interface {
	// DetectFace returns ErrNoFace or ErrAmbiguousFace unless exactly one face is found.
	DetectFace(frame gocv.Mat) (BoundingBox, error)
}

// RegionDetector finds the single face and the eyes inside it.
type RegionDetector interface {
	DetectEyes(frame gocv.Mat) (Regions, error)
}

// PupilLocator finds a pupil center inside one eye crop.
type PupilLocator interface {
	Locate(eye *EyeObservation) (PupilPoint, bool)
}

// SelectSingle enforces the exactly-one-face contract.
func SelectSingle(faces []BoundingBox) (BoundingBox, error) {
	switch len(faces) {
	case 0:
		return BoundingBox{}, ErrNoFace
	case 1:
		return faces[0], nil
	default:
		return BoundingBox{}, ErrAmbiguousFace
	}
}

// AssignEyes keeps the eye boxes lying entirely inside face and buckets them
// by comparing each box's horizontal center with the face midpoint. Left and
// right are image sides. A later candidate replaces an earlier one on the
// same side.
func AssignEyes(face BoundingBox, eyes []BoundingBox) (left, right *BoundingBox) {
	mid := face.CenterX()
	for i := range eyes {
		eye := eyes[i]
		if !eye.Valid() || !face.Contains(eye) {
			continue
		}
		if eye.CenterX() < mid {
			left = &eye
		} else {
			right = &eye
		}
	}
	return left, right
}
