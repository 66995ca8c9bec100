// Package config provides environment helpers for olivesort commands.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables read by olivesort.
const (
	EnvModel       = "OLIVESORT_MODEL"
	EnvBackend     = "OLIVESORT_BACKEND"
	EnvSerialPort  = "OLIVESORT_SERIAL_PORT"
	EnvCameraIndex = "OLIVESORT_CAMERA_INDEX"
	EnvWebPort     = "OLIVESORT_WEB_PORT"
	EnvLogLevel    = "OLIVESORT_LOG_LEVEL"
	EnvORTLib      = "ORT_LIB_PATH"
)

// String returns the value of key, or def if unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns the integer value of key.
// Falls back to def if unset or not a number.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// IsSet reports whether key is present and non-blank.
func IsSet(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}
