package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gazenav/internal/config"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

func TestTrackingConfig_Overrides(t *testing.T) {
	cfg := TrackingConfig(config.Settings{
		Sensitivity:    0,
		HasSensitivity: true,
		Window:         8,
		ZoomSamples:    3,
		FaceCascade:    "/models/face.xml",
		YuNetModel:     "/models/yunet.onnx",
	})

	assert.Equal(t, 0, cfg.Sensitivity)
	assert.Equal(t, 8, cfg.SmoothingWindowSize)
	assert.Equal(t, 3, cfg.ZoomSampleCount)
	assert.Equal(t, "/models/face.xml", cfg.Detection.FaceCascadePath)
	assert.Equal(t, tracking.DefaultConfig().Detection.EyeCascadePath, cfg.Detection.EyeCascadePath)
	assert.Equal(t, "/models/yunet.onnx", cfg.Detection.YuNetModelPath)
}

func TestTrackingConfig_Defaults(t *testing.T) {
	cfg := TrackingConfig(config.Settings{})
	def := tracking.DefaultConfig()

	assert.Equal(t, def.Sensitivity, cfg.Sensitivity)
	assert.Equal(t, def.SmoothingWindowSize, cfg.SmoothingWindowSize)
	assert.Equal(t, def.ZoomSampleCount, cfg.ZoomSampleCount)
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	_, err := New(config.Settings{Sensitivity: 11, HasSensitivity: true})
	assert.Error(t, err)

	_, err = New(config.Settings{Window: 500})
	assert.Error(t, err)

	a, err := New(config.Settings{Port: "0"})
	require.NoError(t, err)
	assert.Equal(t, tracking.DefaultConfig().Sensitivity, a.tracking.Sensitivity)
	a.Shutdown()
}
