package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetHD      = "hd"
	PresetFast    = "fast"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetHD:      HDConfig(),
		PresetFast:    FastConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetHD, PresetFast}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HDConfig returns 720p. Crops are larger, classification is slower.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// FastConfig keeps 640x480 but shortens the warmup.
// Only useful with cameras that do not buffer stale frames.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.WarmupFrames = 3
	return cfg
}
