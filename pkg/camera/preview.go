package camera

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// PreviewSource passes frames through from another source and, at most
// once per interval, hands a JPEG copy to a callback for live preview.
type PreviewSource struct {
	Source

	interval time.Duration
	send     func(jpeg []byte)
	logger   *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// NewPreviewSource wraps src. A non-positive interval sends every frame.
func NewPreviewSource(src Source, interval time.Duration, send func(jpeg []byte)) *PreviewSource {
	return &PreviewSource{
		Source:   src,
		interval: interval,
		send:     send,
		logger:   slog.Default().With("component", "camera-preview"),
	}
}

// NextFrame returns the next frame of the wrapped source.
func (p *PreviewSource) NextFrame(ctx context.Context) (Frame, error) {
	frame, err := p.Source.NextFrame(ctx)
	if err != nil || !frame.Valid() || p.send == nil {
		return frame, err
	}

	p.mu.Lock()
	due := time.Since(p.last) >= p.interval
	if due {
		p.last = time.Now()
	}
	p.mu.Unlock()

	if due {
		p.publish(&frame)
	}
	return frame, nil
}

func (p *PreviewSource) publish(frame *Frame) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame.Mat())
	if err != nil {
		p.logger.Debug("preview encode failed", "error", err)
		return
	}
	defer buf.Close()

	// The encoder owns buf; the callback gets its own copy
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.send(data)
}
