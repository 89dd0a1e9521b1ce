// gaze-probe - print per-frame face, eye and pupil geometry for tuning
// cascade parameters against a real camera.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/teslashibe/go-gazenav/internal/config"
	"github.com/teslashibe/go-gazenav/internal/log"
	"github.com/teslashibe/go-gazenav/pkg/app"
	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
	"github.com/teslashibe/go-gazenav/pkg/tracking/detection"
)

func main() {
	cam := flag.String("camera", "", "Camera: device:N or http://snapshot-url")
	interval := flag.Duration("interval", 200*time.Millisecond, "Time between probes")
	zoom := flag.Bool("zoom", false, "Also measure face width for the zoom gesture")
	asJSON := flag.Bool("json", false, "Print one JSON object per probe")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *cam != "" {
		settings.Camera = *cam
	}
	log.Setup(log.Options{Level: settings.LogLevel})

	if err := run(settings, *interval, *zoom, *asJSON); err != nil {
		log.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func run(settings config.Settings, interval time.Duration, zoom, asJSON bool) error {
	cfg := app.TrackingConfig(settings)

	src, err := openSource(settings.Camera)
	if err != nil {
		return err
	}
	defer src.Close()

	regions, err := detection.NewCascade(cfg.Detection)
	if err != nil {
		return err
	}
	defer regions.Close()

	logger := log.With("component", "probe")
	perception := tracking.NewPerception(cfg, src, regions, detection.NewHoughLocator(cfg.Detection), logger)
	estimator := tracking.NewZoomEstimator(cfg, src, regions, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		obs, err := perception.Observe(ctx)
		width, zerr := 0, error(nil)
		if zoom {
			width, zerr = estimator.MeasureFace(ctx)
		}

		if asJSON {
			enc.Encode(probeResult(obs, err, width, zerr))
			continue
		}
		printProbe(obs, err, width, zerr, zoom)
	}
}

func openSource(value string) (camera.Source, error) {
	kind, target := config.CameraKind(value)
	switch kind {
	case "device":
		id, err := strconv.Atoi(target)
		if err != nil {
			return nil, fmt.Errorf("bad device id %q: %w", target, err)
		}
		return camera.OpenDevice(id, camera.DefaultConfig())
	case "http":
		return camera.NewSnapshotSource(target, camera.DefaultConfig())
	default:
		return nil, fmt.Errorf("unsupported camera %q", value)
	}
}

type result struct {
	Observation *tracking.Observation `json:"observation,omitempty"`
	Miss        string                `json:"miss,omitempty"`
	FaceWidth   int                   `json:"face_width,omitempty"`
	ZoomMiss    string                `json:"zoom_miss,omitempty"`
}

func probeResult(obs tracking.Observation, err error, width int, zerr error) result {
	var r result
	if err != nil {
		r.Miss = err.Error()
	} else {
		r.Observation = &obs
	}
	if zerr != nil {
		r.ZoomMiss = zerr.Error()
	}
	r.FaceWidth = width
	return r
}

func printProbe(obs tracking.Observation, err error, width int, zerr error, zoom bool) {
	ts := time.Now().Format("15:04:05.000")
	switch {
	case errors.Is(err, camera.ErrNoFrame):
		fmt.Printf("%s  no frame\n", ts)
		return
	case err != nil:
		fmt.Printf("%s  miss: %v\n", ts, err)
	default:
		fmt.Printf("%s  face=%v left=%s right=%s ratio=(%.1f, %.1f)\n",
			ts, obs.Face, eye(obs.Left), eye(obs.Right), obs.Ratio.X, obs.Ratio.Y)
	}
	if zoom {
		if zerr != nil {
			fmt.Printf("%s  zoom miss: %v\n", ts, zerr)
		} else {
			fmt.Printf("%s  face width %d\n", ts, width)
		}
	}
}

func eye(s *tracking.EyeSample) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%v@(%d,%d)", s.Box, s.Pupil.X, s.Pupil.Y)
}
