package camera

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// frameSlot holds the most recent frame from a blocking reader and lets
// consumers wait for one newer than what they already saw.
type frameSlot struct {
	mu     sync.Mutex
	mat    gocv.Mat
	has    bool
	seq    uint64
	closed bool
	notify chan struct{}
}

func newFrameSlot() *frameSlot {
	return &frameSlot{notify: make(chan struct{})}
}

// publish stores mat as the latest frame, taking ownership of it.
func (s *frameSlot) publish(mat gocv.Mat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		mat.Close()
		return
	}
	if s.has {
		s.mat.Close()
	}
	s.mat = mat
	s.has = true
	s.seq++

	close(s.notify)
	s.notify = make(chan struct{})
}

// wait returns a copy of the first frame with sequence greater than after.
func (s *frameSlot) wait(ctx context.Context, after uint64) (gocv.Mat, uint64, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return gocv.Mat{}, after, ErrClosed
		}
		if s.has && s.seq > after {
			m := s.mat.Clone()
			seq := s.seq
			s.mu.Unlock()
			return m, seq, nil
		}
		ch := s.notify
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return gocv.Mat{}, after, ErrNoFrame
		case <-ch:
		}
	}
}

func (s *frameSlot) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.has {
		s.mat.Close()
		s.has = false
	}
	close(s.notify)
}
