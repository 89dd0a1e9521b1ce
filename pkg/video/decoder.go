// Package video receives a remote camera over WebRTC and turns its H264
// stream into frames for the gaze pipeline.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-gazenav/pkg/camera"
)

// ErrIncomplete is returned when a stream holds no decodable frame yet.
var ErrIncomplete = errors.New("video: incomplete stream")

// minStreamBytes is the smallest buffer worth handing to the decoder.
const minStreamBytes = 100

// Decoder turns an Annex-B H264 stream into the JPEG of its last frame.
type Decoder interface {
	Decode(ctx context.Context, stream []byte) ([]byte, error)
}

// FFmpegDecoder decodes with a short-lived ffmpeg process over pipes.
type FFmpegDecoder struct {
	Path    string
	Timeout time.Duration
	Quality int // mjpeg q:v, 1-31, lower is better
}

// NewFFmpegDecoder returns a decoder using ffmpeg from PATH.
func NewFFmpegDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{
		Path:    "ffmpeg",
		Timeout: 500 * time.Millisecond,
		Quality: 3,
	}
}

// Decode runs ffmpeg over stream and returns the last frame as JPEG.
func (d *FFmpegDecoder) Decode(ctx context.Context, stream []byte) ([]byte, error) {
	if len(stream) < minStreamBytes {
		return nil, ErrIncomplete
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.Path,
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(d.Quality),
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(stream)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	jpeg := lastJPEG(stdout.Bytes())
	if jpeg == nil {
		return nil, ErrIncomplete
	}
	return jpeg, nil
}

var jpegSOI = []byte{0xff, 0xd8, 0xff}

// lastJPEG returns the last image of a concatenated mjpeg stream. SOI
// cannot appear inside entropy-coded data, so the last SOI starts the last
// image.
func lastJPEG(b []byte) []byte {
	i := bytes.LastIndex(b, jpegSOI)
	if i < 0 {
		return nil
	}
	return b[i:]
}

// isBlank reports whether a decoded frame is the gray or black picture
// decoders emit before the first keyframe is complete.
func isBlank(frame *camera.Frame) bool {
	if !frame.Valid() || frame.Width() < 100 || frame.Height() < 100 {
		return true
	}

	// BGR channel means
	mat := frame.Mat()
	mean := mat.Mean()
	b, g, r := mean.Val1, mean.Val2, mean.Val3

	if r < 30 && g < 30 && b < 30 {
		return true
	}

	// Uniform mid gray
	diff := abs(r-g) + abs(g-b) + abs(r-b)
	return diff < 15 && r > 100 && r < 150
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
