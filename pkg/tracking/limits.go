package tracking

// Sensitivity range shared by the orbit step and the zoom gain.
const (
	MinSensitivity     = 0
	MaxSensitivity     = 10
	DefaultSensitivity = 1
)

// Bounds for runtime-tunable values.
const (
	MaxWindowSize  = 60
	MaxZoomSamples = 30
	MinTickHz      = 1.0
	MaxTickHz      = 60.0
)

// clampInt limits a value to a range
func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
