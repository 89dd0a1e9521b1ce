package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	PresetFast    = "fast"
	PresetMirror  = "mirror"
	PresetNight   = "night"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset720p:    HD720Config(),
		PresetFast:    FastConfig(),
		PresetMirror:  MirrorConfig(),
		PresetNight:   NightConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		Preset720p,
		PresetFast,
		PresetMirror,
		PresetNight,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p HD configuration.
// Larger eye crops at the cost of slower cascades.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// FastConfig trades resolution for frame rate.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 60
	return cfg
}

// MirrorConfig is DefaultConfig with horizontal mirroring.
func MirrorConfig() Config {
	cfg := DefaultConfig()
	cfg.Mirror = true
	return cfg
}

// NightConfig raises brightness and contrast for dim rooms.
func NightConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15 // Longer exposure per frame
	cfg.Brightness = 160
	cfg.Contrast = 150
	return cfg
}
