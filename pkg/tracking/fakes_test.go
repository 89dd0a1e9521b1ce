package tracking

import (
	"context"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

// fakeFrames hands out empty frames, or the queued errors first.
type fakeFrames struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *fakeFrames) NextFrame(ctx context.Context) (camera.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return camera.Frame{}, err
		}
	}
	return camera.Frame{}, nil
}

// regionResult is one scripted DetectEyes answer.
type regionResult struct {
	regions detection.Regions
	err     error
}

type fakeRegions struct {
	results []regionResult
	last    regionResult
}

func (f *fakeRegions) DetectEyes(gocv.Mat) (detection.Regions, error) {
	if len(f.results) > 0 {
		f.last = f.results[0]
		f.results = f.results[1:]
	}
	return f.last.regions, f.last.err
}

// eyes builds regions with a face and eye boxes at the given x positions.
func eyes(left, right *detection.BoundingBox) regionResult {
	r := detection.Regions{Face: detection.BoundingBox{X: 100, Y: 100, W: 200, H: 200}}
	if left != nil {
		r.Left = &detection.EyeObservation{Box: *left}
	}
	if right != nil {
		r.Right = &detection.EyeObservation{Box: *right}
	}
	return regionResult{regions: r}
}

// fakeLocator returns a fixed pupil per eye box X coordinate.
type fakeLocator struct {
	pupils map[int]detection.PupilPoint
}

func (f *fakeLocator) Locate(eye *detection.EyeObservation) (detection.PupilPoint, bool) {
	p, ok := f.pupils[eye.Box.X]
	return p, ok
}

type widthResult struct {
	width int
	err   error
}

type fakeFaces struct {
	results []widthResult
}

func (f *fakeFaces) DetectFace(gocv.Mat) (detection.BoundingBox, error) {
	if len(f.results) == 0 {
		return detection.BoundingBox{}, detection.ErrNoFace
	}
	r := f.results[0]
	f.results = f.results[1:]
	if r.err != nil {
		return detection.BoundingBox{}, r.err
	}
	return detection.BoundingBox{X: 10, Y: 10, W: r.width, H: r.width}, nil
}

// gazeResult is one scripted sample.
type gazeResult struct {
	ratio GazeRatio
	err   error
}

type fakeSampler struct {
	results []gazeResult
	calls   int
}

func (f *fakeSampler) SampleGaze(context.Context) (GazeRatio, error) {
	f.calls++
	if len(f.results) == 0 {
		return GazeRatio{}, ErrNoPupil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.ratio, r.err
}

func gaze(xs ...float64) []gazeResult {
	out := make([]gazeResult, len(xs))
	for i, x := range xs {
		out[i] = gazeResult{ratio: GazeRatio{X: x, Y: 50}}
	}
	return out
}

type fakeMeter struct {
	results []widthResult
}

func (f *fakeMeter) MeasureFace(context.Context) (int, error) {
	if len(f.results) == 0 {
		return 0, detection.ErrNoFace
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.width, r.err
}

type recordingSink struct {
	mu      sync.Mutex
	intents []Intent
}

func (s *recordingSink) Apply(_ context.Context, in Intent) error {
	s.mu.Lock()
	s.intents = append(s.intents, in)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) got() []Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Intent(nil), s.intents...)
}

type memRecorder struct {
	mu      sync.Mutex
	started []SessionInfo
	ended   []SessionInfo
	intents map[string][]Intent
}

func newMemRecorder() *memRecorder {
	return &memRecorder{intents: map[string][]Intent{}}
}

func (r *memRecorder) StartSession(_ context.Context, info SessionInfo) error {
	r.mu.Lock()
	r.started = append(r.started, info)
	r.mu.Unlock()
	return nil
}

func (r *memRecorder) EndSession(_ context.Context, info SessionInfo) error {
	r.mu.Lock()
	r.ended = append(r.ended, info)
	r.mu.Unlock()
	return nil
}

func (r *memRecorder) RecordIntent(_ context.Context, id string, in Intent) error {
	r.mu.Lock()
	r.intents[id] = append(r.intents[id], in)
	r.mu.Unlock()
	return nil
}
