// gazenav - navigate a 3-D viewport with eye gaze and head distance.
// Hold the rotate key and look left or right to orbit; hold the zoom key
// and lean in or out to zoom.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-gazenav/internal/config"
	"github.com/teslashibe/go-gazenav/internal/log"
	"github.com/teslashibe/go-gazenav/pkg/app"
	"github.com/teslashibe/go-gazenav/pkg/debug"
)

func main() {
	settings, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Setup(log.Options{Level: settings.LogLevel, File: settings.LogFile})

	a, err := app.New(settings)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		a.Shutdown()
		os.Exit(1)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

// parseFlags loads the environment and applies command line overrides.
func parseFlags() (config.Settings, error) {
	envFile := flag.String("env", ".env", "Optional environment file")
	port := flag.String("port", "", "Dashboard port (overrides GAZENAV_PORT)")
	cam := flag.String("camera", "", "Camera: device:N, http://snapshot-url or webrtc://host[:port]")
	host := flag.String("host", "", "Viewport host URL, http:// or ws://")
	sensitivity := flag.Int("sensitivity", -1, "Orbit step and zoom gain, 0-10")
	verbose := flag.Bool("debug", false, "Enable verbose debug logging")
	detectLog := flag.Bool("debug-detection", false, "Log per-frame detection geometry")
	flag.Parse()

	settings, err := config.Load(*envFile)
	if err != nil {
		return settings, err
	}

	if *port != "" {
		settings.Port = *port
	}
	if *cam != "" {
		settings.Camera = *cam
	}
	if *host != "" {
		settings.HostURL = *host
	}
	if *sensitivity >= 0 {
		settings.Sensitivity = *sensitivity
		settings.HasSensitivity = true
	}
	if *verbose {
		settings.Debug = true
		settings.LogLevel = "debug"
	}
	debug.Detection = *detectLog

	return settings, nil
}
