package classify

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrModelNotFound is returned when the model artifact is missing.
	ErrModelNotFound = errors.New("classify: model artifact not found")

	// ErrUnknownBackend is returned for an unsupported backend name.
	ErrUnknownBackend = errors.New("classify: unknown backend")

	// ErrNoResult is returned when a model output has no scores.
	ErrNoResult = errors.New("classify: no classification result")

	// ErrClosed is returned when classifying with a closed model.
	ErrClosed = errors.New("classify: model closed")

	// ErrIncompatibleModel is returned when the artifact cannot serve
	// as an image classifier.
	ErrIncompatibleModel = errors.New("classify: incompatible model")
)

// RunnerError is an error reported by the Edge Impulse runner process.
type RunnerError struct {
	// Op is the request that failed ("hello", "classify").
	Op string

	// Message is the error text from the runner.
	Message string
}

// Error implements the error interface.
func (e *RunnerError) Error() string {
	return fmt.Sprintf("classify [eim]: %s failed: %s", e.Op, e.Message)
}

// BackendError wraps an error with backend context.
type BackendError struct {
	Backend Backend
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("classify [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// wrapError wraps an error with backend context.
func wrapError(backend Backend, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}
