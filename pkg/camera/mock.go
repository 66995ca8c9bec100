package camera

import (
	"errors"
	"image"
	"image/color"
	"sync"
)

// Mock implements Device for testing.
type Mock struct {
	// ReadFunc is called when Read is invoked. The argument is the
	// 1-based read number.
	ReadFunc func(n int) (image.Image, error)

	mu     sync.Mutex
	reads  int
	closed bool
}

// NewMock returns a device that always yields a solid w x h frame.
func NewMock(w, h int) *Mock {
	frame := SolidFrame(w, h, color.RGBA{R: 90, G: 110, B: 40, A: 255})
	return &Mock{
		ReadFunc: func(int) (image.Image, error) { return frame, nil },
	}
}

// FailingOn returns a 640x480 mock whose nth read fails.
func FailingOn(n int) *Mock {
	m := NewMock(640, 480)
	ok := m.ReadFunc
	m.ReadFunc = func(i int) (image.Image, error) {
		if i == n {
			return nil, errors.New("mock: read failed")
		}
		return ok(i)
	}
	return m
}

// Read calls ReadFunc and counts the call.
func (m *Mock) Read() (image.Image, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.reads++
	n := m.reads
	fn := m.ReadFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, errors.New("mock: no ReadFunc")
	}
	return fn(n)
}

// Reads returns how many reads were made.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SolidFrame builds a w x h frame of one colour.
func SolidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}
