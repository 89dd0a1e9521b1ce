package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-gazenav/pkg/debug"
	"gocv.io/x/gocv"
)

// YuNetDetector uses OpenCV's FaceDetectorYN as an alternative face-size
// backend. It only answers DetectFace; eyes still come from the cascades.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.YuNetModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.YuNetModelPath)
	}

	// Input size is updated per frame
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.YuNetModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// DetectFace returns the single face in the frame, applying the same size
// limits as the zoom cascade.
func (d *YuNetDetector) DetectFace(frame gocv.Mat) (BoundingBox, error) {
	if frame.Empty() {
		return BoundingBox{}, ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(frame, &faces)

	// Rows of 15 floats: x, y, w, h, 5 landmark pairs, score
	var boxes []BoundingBox
	for r := 0; r < faces.Rows(); r++ {
		box := BoundingBox{
			X: int(faces.GetFloatAt(r, 0)),
			Y: int(faces.GetFloatAt(r, 1)),
			W: int(faces.GetFloatAt(r, 2)),
			H: int(faces.GetFloatAt(r, 3)),
		}
		box = clip(box, frame.Cols(), frame.Rows())
		if !sizeAllowed(box, d.config.ZoomFace) {
			continue
		}
		boxes = append(boxes, box)
	}

	if len(boxes) > 0 {
		debug.DetectLog("👁️  YuNet found %d face(s)\n", len(boxes))
	}

	return SelectSingle(boxes)
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// clip trims a box to the frame. YuNet may report boxes hanging off the edge.
func clip(b BoundingBox, width, height int) BoundingBox {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	return BoxFromRect(r)
}

func sizeAllowed(b BoundingBox, p CascadeParams) bool {
	if !b.Valid() || b.W < p.MinWidth || b.H < p.MinHeight {
		return false
	}
	if p.MaxWidth > 0 && b.W > p.MaxWidth {
		return false
	}
	if p.MaxHeight > 0 && b.H > p.MaxHeight {
		return false
	}
	return true
}
