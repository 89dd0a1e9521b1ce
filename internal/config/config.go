// Package config loads process configuration for go-gazenav commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for process-level settings.
const (
	DefaultPort        = "8090"
	DefaultCamera      = "device:0"
	DefaultTelemetryDB = "gazenav.db"
	DefaultLogLevel    = "info"
)

// Settings is the environment-derived configuration of a gazenav process.
// Tracking parameters left at zero keep the tracking defaults.
type Settings struct {
	Port           string
	Camera         string
	HostURL        string
	Sensitivity    int
	HasSensitivity bool
	Window         int
	ZoomSamples    int
	FaceCascade    string
	EyeCascade     string
	YuNetModel     string
	TelemetryDB    string
	LogLevel       string
	LogFile        string
	Debug          bool
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(files ...string) (Settings, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("config: load env file: %w", err)
	}

	s := Settings{
		Port:        getEnv("GAZENAV_PORT", DefaultPort),
		Camera:      getEnv("GAZENAV_CAMERA", DefaultCamera),
		HostURL:     getEnv("GAZENAV_HOST_URL", ""),
		Window:      getEnvAsInt("GAZENAV_WINDOW", 0),
		ZoomSamples: getEnvAsInt("GAZENAV_ZOOM_SAMPLES", 0),
		FaceCascade: getEnv("GAZENAV_FACE_CASCADE", ""),
		EyeCascade:  getEnv("GAZENAV_EYE_CASCADE", ""),
		YuNetModel:  getEnv("GAZENAV_YUNET_MODEL", ""),
		TelemetryDB: getEnv("GAZENAV_TELEMETRY_DB", DefaultTelemetryDB),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", DefaultLogLevel)),
		LogFile:     getEnv("LOG_FILE", ""),
		Debug:       getEnvAsBool("GAZENAV_DEBUG", false),
	}

	// Sensitivity 0 is meaningful, so track whether it was set at all.
	if v, ok := os.LookupEnv("GAZENAV_SENSITIVITY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("config: GAZENAV_SENSITIVITY: %w", err)
		}
		s.Sensitivity = n
		s.HasSensitivity = true
	}

	return s, nil
}

// CameraKind splits a camera setting such as "device:0", "http://..." or
// "webrtc://host" into its scheme and remainder.
func CameraKind(value string) (kind, target string) {
	switch {
	case strings.HasPrefix(value, "device:"):
		return "device", strings.TrimPrefix(value, "device:")
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return "http", value
	case strings.HasPrefix(value, "webrtc://"):
		return "webrtc", strings.TrimPrefix(value, "webrtc://")
	default:
		return "", value
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
