package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-gazenav/pkg/debug"
	"gocv.io/x/gocv"
)

// CascadeDetector finds faces and eyes with OpenCV Haar cascades.
type CascadeDetector struct {
	face   gocv.CascadeClassifier
	eye    gocv.CascadeClassifier
	config Config
	mu     sync.Mutex // Protects the classifiers
}

// NewCascade loads the face and eye cascades named in cfg.
func NewCascade(cfg Config) (*CascadeDetector, error) {
	for _, path := range []string{cfg.FaceCascadePath, cfg.EyeCascadePath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("cascade file not found: %s", path)
		}
	}

	face := gocv.NewCascadeClassifier()
	if !face.Load(cfg.FaceCascadePath) {
		face.Close()
		return nil, fmt.Errorf("load face cascade %s", cfg.FaceCascadePath)
	}

	eye := gocv.NewCascadeClassifier()
	if !eye.Load(cfg.EyeCascadePath) {
		face.Close()
		eye.Close()
		return nil, fmt.Errorf("load eye cascade %s", cfg.EyeCascadePath)
	}

	return &CascadeDetector{face: face, eye: eye, config: cfg}, nil
}

// DetectFace runs the face-size cascade pass only.
func (d *CascadeDetector) DetectFace(frame gocv.Mat) (BoundingBox, error) {
	gray, err := toGray(frame)
	if err != nil {
		return BoundingBox{}, err
	}
	defer gray.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.singleFace(gray, d.config.ZoomFace)
}

// DetectEyes finds the face, then the eyes inside it, and crops each eye
// out of the grayscale frame.
func (d *CascadeDetector) DetectEyes(frame gocv.Mat) (Regions, error) {
	gray, err := toGray(frame)
	if err != nil {
		return Regions{}, err
	}
	defer gray.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	face, err := d.singleFace(gray, d.config.Face)
	if err != nil {
		return Regions{}, err
	}

	rects := detect(&d.eye, gray, d.config.Eye)
	eyes := make([]BoundingBox, 0, len(rects))
	for _, r := range rects {
		eyes = append(eyes, BoxFromRect(r))
	}
	left, right := AssignEyes(face, eyes)

	regions := Regions{Face: face}
	if left != nil {
		regions.Left = crop(gray, *left)
	}
	if right != nil {
		regions.Right = crop(gray, *right)
	}

	debug.DetectLog("👁️  face=%+v eyes=%d left=%v right=%v\n",
		face, len(rects), left != nil, right != nil)

	return regions, nil
}

// Close releases the classifiers
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.face.Close()
	d.eye.Close()
	return nil
}

func (d *CascadeDetector) singleFace(gray gocv.Mat, params CascadeParams) (BoundingBox, error) {
	rects := detect(&d.face, gray, params)
	faces := make([]BoundingBox, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, BoxFromRect(r))
	}
	return SelectSingle(faces)
}

func detect(c *gocv.CascadeClassifier, gray gocv.Mat, p CascadeParams) []image.Rectangle {
	return c.DetectMultiScaleWithParams(gray, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize(), p.MaxSize())
}

// crop clones the eye region so it outlives the grayscale frame.
func crop(gray gocv.Mat, box BoundingBox) *EyeObservation {
	region := gray.Region(box.Rect())
	defer region.Close()
	return NewEyeObservation(box, region.Clone())
}

func toGray(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.Mat{}, ErrEmptyFrame
	}
	gray := gocv.NewMat()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
		return gray, nil
	}
	if err := gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("convert to gray: %w", err)
	}
	return gray, nil
}
