package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

type fakeState struct {
	mu     sync.Mutex
	status Status
	logs   []string
}

func (s *fakeState) UpdateStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *fakeState) AddLog(logType, message string) {
	s.mu.Lock()
	s.logs = append(s.logs, logType+": "+message)
	s.mu.Unlock()
}

// newTestTracker wires a tracker whose left eye pupil sits at the given
// x positions (as a percentage of a 40px wide eye box) on successive frames.
func newTestTracker(t *testing.T, xs []int, widths []int, opts ...Option) *Tracker {
	t.Helper()

	results := make([]regionResult, len(xs))
	for i := range xs {
		box := detection.BoundingBox{X: i, Y: 150, W: 40, H: 60}
		results[i] = eyes(&box, nil)
	}
	pupils := map[int]detection.PupilPoint{}
	for i, x := range xs {
		pupils[i] = detection.PupilPoint{X: x * 40 / 100, Y: 30}
	}

	faces := &fakeFaces{}
	for _, w := range widths {
		faces.results = append(faces.results, widthResult{width: w})
	}

	cfg := DefaultConfig()
	cfg.SmoothingWindowSize = 1
	cfg.ZoomSampleCount = 1

	tr, err := New(cfg, &fakeFrames{}, &fakeRegions{results: results}, faces, &fakeLocator{pupils: pupils}, opts...)
	require.NoError(t, err)
	return tr
}

func TestNew_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sensitivity = 11
	_, err := New(cfg, &fakeFrames{}, &fakeRegions{}, &fakeFaces{}, &fakeLocator{})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), nil, &fakeRegions{}, &fakeFaces{}, &fakeLocator{})
	assert.Error(t, err)
}

func TestTracker_DispatchesAndRecords(t *testing.T) {
	sink := &recordingSink{}
	rec := newMemRecorder()
	state := &fakeState{}

	// Offsets: 50% -> 0, 75% -> 4, 25% -> -4
	tr := newTestTracker(t, []int{50, 75, 25}, []int{240, 210},
		WithSink(sink), WithRecorder(rec), WithStateUpdater(state))
	ctx := context.Background()

	tr.SetTrigger(TriggerRotate)
	for i := 0; i < 3; i++ {
		tr.Tick(ctx)
	}

	tr.SetTrigger(TriggerZoom)
	tr.Tick(ctx) // baseline 80
	tr.Tick(ctx) // 70

	tr.SetTrigger(TriggerNone)
	tr.Tick(ctx)

	want := []Intent{OrbitRight(1), OrbitLeft(1), ZoomBy(10)}
	if diff := cmp.Diff(want, sink.got()); diff != "" {
		t.Errorf("dispatched intents mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, rec.started, 2)
	require.Len(t, rec.ended, 2)
	assert.Equal(t, []Intent{OrbitRight(1), OrbitLeft(1)}, rec.intents[rec.started[0].ID])
	assert.Equal(t, []Intent{ZoomBy(10)}, rec.intents[rec.started[1].ID])

	st := tr.Status()
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, uint64(6), st.Ticks)
	assert.Equal(t, ZoomBy(10), st.LastIntent)
	assert.Empty(t, st.SessionID)

	state.mu.Lock()
	assert.NotEmpty(t, state.logs)
	assert.Equal(t, uint64(6), state.status.Ticks)
	state.mu.Unlock()
}

func TestTracker_DisabledForcesNone(t *testing.T) {
	sink := &recordingSink{}
	tr := newTestTracker(t, []int{50, 75, 25, 75}, nil, WithSink(sink))
	ctx := context.Background()

	tr.SetTrigger(TriggerRotate)
	tr.Tick(ctx)
	assert.Equal(t, "tracking", tr.Status().State)

	tr.SetEnabled(false)
	assert.Equal(t, TriggerNone, tr.Trigger())
	assert.True(t, tr.Tick(ctx).IsNone())
	assert.Equal(t, "idle", tr.Status().State, "disabling ends the session")
	assert.Empty(t, sink.got())

	tr.SetEnabled(true)
	assert.Equal(t, TriggerRotate, tr.Trigger())
}

func TestTracker_Tuning(t *testing.T) {
	tr := newTestTracker(t, nil, nil)

	zero := 0
	off := false
	tr.SetTuningParams(TuningParams{
		Enabled:             &off,
		Sensitivity:         &zero,
		SmoothingWindowSize: 4,
		ZoomSampleCount:     2,
		TickHz:              10,
	})

	p := tr.GetTuningParams()
	require.NotNil(t, p.Sensitivity)
	require.NotNil(t, p.Enabled)
	assert.Equal(t, 0, *p.Sensitivity)
	assert.False(t, *p.Enabled)
	assert.Equal(t, 4, p.SmoothingWindowSize)
	assert.Equal(t, 2, p.ZoomSampleCount)
	assert.InDelta(t, 10.0, p.TickHz, 0.001)

	// Unset fields are left alone; out-of-range values clamp
	big := 99
	tr.SetTuningParams(TuningParams{Sensitivity: &big, TickHz: 1000})
	p = tr.GetTuningParams()
	assert.Equal(t, MaxSensitivity, *p.Sensitivity)
	assert.Equal(t, 4, p.SmoothingWindowSize)
	assert.InDelta(t, MaxTickHz, p.TickHz, 0.01)
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	rec := newMemRecorder()
	tr := newTestTracker(t, []int{50, 50, 50, 50, 50, 50}, nil, WithRecorder(rec))
	tr.SetTuningParams(TuningParams{TickHz: 50})
	tr.SetTrigger(TriggerRotate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return tr.Status().Ticks >= 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, tr.Status().Running)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.False(t, tr.Status().Running)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.ended, 1, "active session is closed on shutdown")
}

func TestTracker_StateUpdaterSwapIsSafe(t *testing.T) {
	xs := make([]int, 50)
	for i := range xs {
		xs[i] = 50 + i%2*25
	}
	tr := newTestTracker(t, xs, nil)
	tr.SetTrigger(TriggerRotate)

	first, second := &fakeState{}, &fakeState{}
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			tr.SetEnabled(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if i%2 == 0 {
				tr.SetStateUpdater(first)
			} else {
				tr.SetStateUpdater(second)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < len(xs); i++ {
			tr.Tick(ctx)
		}
	}()
	wg.Wait()

	tr.SetStateUpdater(first)
	tr.SetEnabled(!tr.Enabled())
	first.mu.Lock()
	defer first.mu.Unlock()
	require.NotEmpty(t, first.logs)
	assert.Contains(t, first.logs[len(first.logs)-1], "Gaze navigation enabled=")
}
