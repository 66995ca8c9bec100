// Package olivesort wires the camera, model, serial link, sorting worker
// and dashboard into one application.
package olivesort

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teslashibe/go-olivesort/internal/config"
	"github.com/teslashibe/go-olivesort/pkg/camera"
	"github.com/teslashibe/go-olivesort/pkg/classify"
	"github.com/teslashibe/go-olivesort/pkg/serial"
	"github.com/teslashibe/go-olivesort/pkg/sorter"
)

// DefaultWebPort is where the dashboard listens.
const DefaultWebPort = "8181"

// Config holds all configuration for the sorter application.
// Flag parsing is done in cmd/olivesort/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	Model  classify.Config
	Camera camera.Config
	Serial serial.Config
	Sorter sorter.Config

	// WebPort is the dashboard port.
	WebPort string
}

// DefaultConfig returns the rig's defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Model:    classify.DefaultConfig(),
		Camera:   camera.DefaultConfig(),
		Serial:   serial.DefaultConfig(),
		Sorter:   sorter.DefaultConfig(),
		WebPort:  DefaultWebPort,
	}
}

// LoadEnvConfig applies environment overrides. Call it before flag
// parsing so flags win.
func (c *Config) LoadEnvConfig() {
	c.Model.ModelPath = config.String(config.EnvModel, c.Model.ModelPath)
	if config.IsSet(config.EnvBackend) {
		c.Model.Backend = classify.Backend(strings.ToLower(config.String(config.EnvBackend, "")))
	}
	c.Model.SharedLibraryPath = config.String(config.EnvORTLib, c.Model.SharedLibraryPath)
	c.Serial.Port = config.String(config.EnvSerialPort, c.Serial.Port)
	c.Camera.Index = config.Int(config.EnvCameraIndex, c.Camera.Index)
	c.WebPort = config.String(config.EnvWebPort, c.WebPort)
	c.LogLevel = config.String(config.EnvLogLevel, c.LogLevel)
}

// Validate checks that the configuration can start a sorter.
func (c *Config) Validate() error {
	if c.Model.ModelPath == "" {
		return &ConfigError{Field: "Model.ModelPath", Message: "model path is required"}
	}
	if _, err := classify.ParseBackend(string(c.Model.Backend)); err != nil {
		return &ConfigError{Field: "Model.Backend", Message: err.Error()}
	}
	if problems := c.Camera.Validate(); len(problems) > 0 {
		return &ConfigError{Field: "Camera", Message: strings.Join(problems, "; ")}
	}
	if c.Serial.Port == "" {
		return &ConfigError{Field: "Serial.Port", Message: "serial port is required"}
	}
	if c.Serial.Baud <= 0 {
		return &ConfigError{Field: "Serial.Baud", Message: fmt.Sprintf("baud rate must be positive, got %d", c.Serial.Baud)}
	}
	if c.Sorter.GoodLabel == "" {
		return &ConfigError{Field: "Sorter.GoodLabel", Message: "good label is required"}
	}
	if port, err := strconv.Atoi(c.WebPort); err != nil || port < 0 || port > 65535 {
		return &ConfigError{Field: "WebPort", Message: fmt.Sprintf("invalid web port %q", c.WebPort)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
