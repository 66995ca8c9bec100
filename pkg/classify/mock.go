package classify

import (
	"context"
	"image"
	"sync"
)

// Mock implements Model for testing.
type Mock struct {
	// ClassifyFunc is called with the zero-based call index.
	ClassifyFunc func(ctx context.Context, n int, img image.Image) (Result, error)

	// LabelSet is returned by Labels.
	LabelSet []string

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock returns a mock that answers each call with the next label in
// sequence, cycling, with a score of 0.9.
func NewMock(labels ...string) *Mock {
	return &Mock{
		LabelSet: labels,
		ClassifyFunc: func(_ context.Context, n int, _ image.Image) (Result, error) {
			if len(labels) == 0 {
				return UnknownResult(), nil
			}
			return Result{Label: labels[n%len(labels)], Score: 0.9}, nil
		},
	}
}

// Classify implements Model.
func (m *Mock) Classify(ctx context.Context, img image.Image) (Result, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Result{}, ErrClosed
	}
	n := m.calls
	m.calls++
	fn := m.ClassifyFunc
	m.mu.Unlock()

	if fn == nil {
		return UnknownResult(), nil
	}
	return fn(ctx, n, img)
}

// Labels implements Model.
func (m *Mock) Labels() []string {
	return m.LabelSet
}

// Close implements Model.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Classify was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
