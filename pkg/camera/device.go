package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// DeviceSource reads frames from a local capture device with gocv.
// A single goroutine drains the device and keeps only the newest frame,
// so NextFrame never returns stale buffered images.
type DeviceSource struct {
	capMu   sync.Mutex
	capture *gocv.VideoCapture
	mirror  bool

	slot   *frameSlot
	lastMu sync.Mutex
	last   uint64

	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// DeviceOption configures a DeviceSource.
type DeviceOption func(*DeviceSource)

// WithLogger sets the logger used for device errors.
func WithLogger(l *slog.Logger) DeviceOption {
	return func(d *DeviceSource) {
		d.logger = l
	}
}

// OpenDevice opens capture device id and starts reading frames.
func OpenDevice(id int, cfg Config, opts ...DeviceOption) (*DeviceSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", id, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &DeviceSource{
		capture: capture,
		slot:    newFrameSlot(),
		logger:  slog.Default(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "camera", "device", id)

	d.ApplyConfig(cfg)

	go d.readLoop(ctx)
	return d, nil
}

// ApplyConfig pushes capture settings to the device. Drivers silently
// ignore properties they do not support.
func (d *DeviceSource) ApplyConfig(cfg Config) error {
	d.capMu.Lock()
	defer d.capMu.Unlock()

	d.capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	d.capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	d.capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness > 0 {
		d.capture.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}
	if cfg.Contrast > 0 {
		d.capture.Set(gocv.VideoCaptureContrast, cfg.Contrast)
	}
	d.mirror = cfg.Mirror
	return nil
}

func (d *DeviceSource) readLoop(ctx context.Context) {
	defer close(d.done)

	img := gocv.NewMat()
	defer img.Close()

	misses := 0
	for ctx.Err() == nil {
		d.capMu.Lock()
		ok := d.capture.Read(&img)
		mirror := d.mirror
		d.capMu.Unlock()

		if !ok || img.Empty() {
			misses++
			if misses == 30 {
				d.logger.Warn("device returned no frames", "misses", misses)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		misses = 0

		out := gocv.NewMat()
		if mirror {
			gocv.Flip(img, &out, 1)
		} else {
			img.CopyTo(&out)
		}
		d.slot.publish(out)
	}
}

// NextFrame returns the first frame captured after the previous call.
func (d *DeviceSource) NextFrame(ctx context.Context) (Frame, error) {
	d.lastMu.Lock()
	after := d.last
	d.lastMu.Unlock()

	mat, seq, err := d.slot.wait(ctx, after)
	if err != nil {
		return Frame{}, err
	}

	d.lastMu.Lock()
	if seq > d.last {
		d.last = seq
	}
	d.lastMu.Unlock()

	return NewFrame(mat), nil
}

// Close stops the reader and releases the device.
func (d *DeviceSource) Close() error {
	d.cancel()
	<-d.done
	d.slot.close()

	d.capMu.Lock()
	defer d.capMu.Unlock()
	return d.capture.Close()
}
