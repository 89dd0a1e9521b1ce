// Package app wires the gaze navigator together: frame source, detectors,
// tracker, host sinks, telemetry and dashboard.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-gazenav/internal/config"
	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/debug"
	"github.com/teslashibe/go-gazenav/pkg/telemetry"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
	"github.com/teslashibe/go-gazenav/pkg/video"
	"github.com/teslashibe/go-gazenav/pkg/viewport"
	"github.com/teslashibe/go-gazenav/pkg/web"
)

// Preview and host pacing.
const (
	PreviewInterval = 200 * time.Millisecond
	HostRate        = 50 * time.Millisecond
)

// closer is anything Shutdown must release.
type closer interface {
	Close() error
}

// App is the gaze navigator process.
// It manages all components and their lifecycle.
type App struct {
	settings config.Settings
	tracking tracking.Config
	logger   *slog.Logger

	// Vision
	source  camera.Source
	cameras *camera.Manager
	regions *detection.CascadeDetector
	faces   detection.FaceDetector
	locator *detection.HoughLocator

	// Navigation
	tracker *tracking.Tracker
	host    *viewport.WSSink
	rate    *viewport.RateSink

	// Persistence and dashboard
	store     *telemetry.Store
	webServer *web.Server

	closers []closer
}

// New validates settings and derives the tracking configuration.
func New(settings config.Settings) (*App, error) {
	cfg := TrackingConfig(settings)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = settings.Debug

	return &App{
		settings: settings,
		tracking: cfg,
		logger:   slog.Default().With("component", "app"),
	}, nil
}

// TrackingConfig applies settings overrides to the tracking defaults.
func TrackingConfig(s config.Settings) tracking.Config {
	cfg := tracking.DefaultConfig()
	if s.HasSensitivity {
		cfg.Sensitivity = s.Sensitivity
	}
	if s.Window > 0 {
		cfg.SmoothingWindowSize = s.Window
	}
	if s.ZoomSamples > 0 {
		cfg.ZoomSampleCount = s.ZoomSamples
	}
	if s.FaceCascade != "" {
		cfg.Detection.FaceCascadePath = s.FaceCascade
	}
	if s.EyeCascade != "" {
		cfg.Detection.EyeCascadePath = s.EyeCascade
	}
	cfg.Detection.YuNetModelPath = s.YuNetModel
	return cfg
}

// Init opens the camera and builds every component.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("gaze navigator starting", "camera", a.settings.Camera, "port", a.settings.Port)

	a.webServer = web.NewServer(a.settings.Port)

	if err := a.initCamera(ctx); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if err := a.initDetection(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := a.initTelemetry(); err != nil {
		// Navigation works without a session history
		a.logger.Warn("telemetry disabled", "error", err)
	}
	if err := a.initTracker(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	a.initHost()

	a.webServer.SetController(a.tracker)
	a.webServer.SetCameraManager(a.cameras)
	if a.store != nil {
		a.webServer.SetSessionLister(a.store)
	}
	return nil
}

func (a *App) initCamera(ctx context.Context) error {
	camCfg := camera.DefaultConfig()
	a.cameras = camera.NewManager(camCfg)

	var src camera.Source
	kind, target := config.CameraKind(a.settings.Camera)
	switch kind {
	case "device":
		id, err := strconv.Atoi(target)
		if err != nil {
			return fmt.Errorf("bad device id %q: %w", target, err)
		}
		dev, err := camera.OpenDevice(id, camCfg, camera.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.cameras.OnConfigChange = dev.ApplyConfig
		src = dev

	case "http":
		snap, err := camera.NewSnapshotSource(target, camCfg)
		if err != nil {
			return err
		}
		src = snap

	case "webrtc":
		url := target
		if !strings.Contains(url, ":") {
			url += ":8443"
		}
		remote, err := video.Connect(ctx, video.DefaultConfig("ws://"+url), video.WithLogger(a.logger))
		if err != nil {
			return err
		}
		src = remote

	default:
		return fmt.Errorf("unknown camera %q", a.settings.Camera)
	}

	a.closers = append(a.closers, src)
	a.source = camera.NewPreviewSource(src, PreviewInterval, a.webServer.SendCameraFrame)
	return nil
}

func (a *App) initDetection() error {
	cfg := a.tracking.Detection

	regions, err := detection.NewCascade(cfg)
	if err != nil {
		return err
	}
	a.regions = regions
	a.closers = append(a.closers, regions)
	a.faces = regions

	if cfg.YuNetModelPath != "" {
		yunet, err := detection.NewYuNet(cfg)
		if err != nil {
			a.logger.Warn("YuNet unavailable, sizing faces with the cascade", "error", err)
		} else {
			a.faces = yunet
			a.closers = append(a.closers, yunet)
		}
	}

	a.locator = detection.NewHoughLocator(cfg)
	return nil
}

func (a *App) initTelemetry() error {
	if a.settings.TelemetryDB == "" {
		return nil
	}
	store, err := telemetry.Open(a.settings.TelemetryDB)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store)
	return nil
}

func (a *App) initTracker() error {
	opts := []tracking.Option{
		tracking.WithLogger(a.logger),
		tracking.WithSink(a.webServer),
		tracking.WithStateUpdater(a.webServer),
	}
	if a.store != nil {
		opts = append(opts, tracking.WithRecorder(a.store))
	}

	t, err := tracking.New(a.tracking, a.source, a.regions, a.faces, a.locator, opts...)
	if err != nil {
		return err
	}
	a.tracker = t
	return nil
}

// initHost connects the viewport host, if one is configured.
func (a *App) initHost() {
	url := a.settings.HostURL
	switch {
	case url == "":
		a.logger.Info("no host configured, intents go to the dashboard only")
		return

	case strings.HasPrefix(url, "ws://"), strings.HasPrefix(url, "wss://"):
		a.host = viewport.NewWSSink(url, a.tracker, viewport.WithLogger(a.logger))
		a.rate = viewport.NewRateSink(a.host, HostRate)

	default:
		a.rate = viewport.NewRateSink(viewport.NewHTTPSink(url), HostRate)
	}
	a.tracker.AddSink(a.rate)
}

// Run starts the dashboard, host link and tracker, and blocks until ctx
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.webServer.StartAsync()

	if a.host != nil {
		go a.host.Run(ctx)
	}
	if a.rate != nil {
		go a.rate.Run(ctx)
	}

	a.webServer.AddLog("status", "Gaze navigator ready")
	a.tracker.Run(ctx)
	return nil
}

// Tracker returns the tracker, for tools that drive it directly.
func (a *App) Tracker() *tracking.Tracker {
	return a.tracker
}

// Shutdown releases every component in reverse order of creation.
func (a *App) Shutdown() {
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web shutdown failed", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	a.logger.Info("gaze navigator stopped")
}
