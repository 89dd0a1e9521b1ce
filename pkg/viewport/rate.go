package viewport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

// RateSink coalesces intents and forwards them to a host at a fixed rate.
// Orbit steps are summed with right positive and left negative; zoom deltas
// are summed. A period with nothing pending sends nothing, so ZoomBy(0)
// never reaches the host through a RateSink.
type RateSink struct {
	next   tracking.IntentSink
	rate   time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	orbit int
	zoom  float64

	// Diagnostics, touched only by Flush
	tickCount     uint64
	skippedTicks  uint64
	errorCount    uint64
	lastErrorTime time.Time
}

// NewRateSink creates a sink flushing to next every rate. 50ms keeps the
// host well under its command budget.
func NewRateSink(next tracking.IntentSink, rate time.Duration) *RateSink {
	return &RateSink{
		next:   next,
		rate:   rate,
		logger: slog.Default().With("component", "viewport-rate"),
	}
}

// Apply queues intent for the next flush.
func (r *RateSink) Apply(_ context.Context, intent tracking.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(intent)
	return nil
}

// caller holds r.mu
func (r *RateSink) add(intent tracking.Intent) {
	switch intent.Kind {
	case tracking.IntentOrbitLeft:
		r.orbit -= intent.Step
	case tracking.IntentOrbitRight:
		r.orbit += intent.Step
	case tracking.IntentZoom:
		r.zoom += intent.Delta
	}
}

// Pending returns the coalesced orbit steps and zoom delta not yet sent.
func (r *RateSink) Pending() (orbit int, zoom float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orbit, r.zoom
}

// Run flushes at the configured rate until ctx is cancelled. Whatever is
// pending at cancellation is flushed once more.
func (r *RateSink) Run(ctx context.Context) {
	ticker := time.NewTicker(r.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Flush(context.Background())
			return
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Flush sends whatever is pending. Intents the host rejects are dropped
// and logged; they are never carried into a later period.
// Flush is not safe to call while Run is active.
func (r *RateSink) Flush(ctx context.Context) {
	r.mu.Lock()
	orbit, zoom := r.orbit, r.zoom
	r.orbit, r.zoom = 0, 0
	r.mu.Unlock()

	r.tickCount++

	if orbit == 0 && zoom == 0 {
		r.skippedTicks++
		r.heartbeat()
		return
	}

	var out []tracking.Intent
	switch {
	case orbit < 0:
		out = append(out, tracking.OrbitLeft(-orbit))
	case orbit > 0:
		out = append(out, tracking.OrbitRight(orbit))
	}
	if zoom != 0 {
		out = append(out, tracking.ZoomBy(zoom))
	}

	for _, intent := range out {
		if err := r.next.Apply(ctx, intent); err != nil {
			// Log at most once per 5 seconds
			r.errorCount++
			if r.lastErrorTime.IsZero() || time.Since(r.lastErrorTime) > 5*time.Second {
				r.logger.Warn("host rejected intent, dropped", "intent", intent.String(), "error", err, "errors", r.errorCount)
				r.lastErrorTime = time.Now()
			}
		}
	}
	r.heartbeat()
}

func (r *RateSink) heartbeat() {
	if r.tickCount%100 == 0 {
		r.logger.Debug("rate sink heartbeat", "ticks", r.tickCount, "skipped", r.skippedTicks, "errors", r.errorCount)
	}
}
