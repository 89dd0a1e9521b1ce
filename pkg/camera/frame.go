package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrNoFrame is returned when no frame arrived before the deadline.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrClosed is returned by sources that have been closed.
	ErrClosed = errors.New("camera: source closed")
)

// Source supplies frames on demand.
type Source interface {
	NextFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Frame is a single captured image owned by the caller.
// The zero value is an empty frame and is safe to Close.
type Frame struct {
	mat   gocv.Mat
	valid bool

	// Captured is when the frame left the device or decoder.
	Captured time.Time
}

// NewFrame wraps mat, taking ownership of it.
func NewFrame(mat gocv.Mat) Frame {
	return Frame{mat: mat, valid: !mat.Empty(), Captured: time.Now()}
}

// Decode decodes an encoded image (JPEG, PNG) into a BGR frame.
func Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrNoFrame
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return Frame{}, fmt.Errorf("camera: decode: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return Frame{}, fmt.Errorf("camera: decode: %w", ErrNoFrame)
	}
	return NewFrame(mat), nil
}

// Mat returns the underlying image. It is only valid until Close.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

// Valid reports whether the frame holds an image.
func (f *Frame) Valid() bool {
	return f.valid
}

// Width returns the frame width in pixels, or 0 for an empty frame.
func (f *Frame) Width() int {
	if !f.valid {
		return 0
	}
	return f.mat.Cols()
}

// Height returns the frame height in pixels, or 0 for an empty frame.
func (f *Frame) Height() int {
	if !f.valid {
		return 0
	}
	return f.mat.Rows()
}

// Close releases the image.
func (f *Frame) Close() {
	if !f.valid {
		return
	}
	f.mat.Close()
	f.valid = false
}
