// Package camera captures the authoritative frame of a sorting cycle.
// It follows the same Config/DefaultConfig/Validate pattern as the other
// tunable packages.
package camera

import "time"

// Config holds all camera configuration parameters.
type Config struct {
	// Index is the OS video device index (0 = /dev/video0).
	Index int `json:"index"`

	// === Resolution ===
	Width  int `json:"width"`  // Requested frame width in pixels
	Height int `json:"height"` // Requested frame height in pixels

	// WarmupFrames is how many reads are discarded before the
	// authoritative read. UVC drivers hand out stale or black buffers
	// right after a pause.
	WarmupFrames int `json:"warmup_frames"`

	// ReadDelay is an optional pause between warmup reads.
	ReadDelay time.Duration `json:"read_delay"`
}

// Capture limits
const (
	MaxWidth        = 4096
	MaxHeight       = 2160
	MaxWarmupFrames = 120
)

// DefaultConfig returns the 640x480 configuration the sorter rig uses.
func DefaultConfig() Config {
	return Config{
		Index:        0,
		Width:        640,
		Height:       480,
		WarmupFrames: 10,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Index < 0 {
		errors = append(errors, "index must be >= 0")
	}
	if c.Width < 2 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 2 and 4096")
	}
	if c.Height < 2 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 2 and 2160")
	}
	if c.WarmupFrames < 0 || c.WarmupFrames > MaxWarmupFrames {
		errors = append(errors, "warmup_frames must be between 0 and 120")
	}
	if c.ReadDelay < 0 {
		errors = append(errors, "read_delay must not be negative")
	}

	return errors
}
