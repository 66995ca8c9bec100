package serial

import (
	"sync"

	"github.com/teslashibe/go-olivesort/pkg/protocol"
)

// Mock records commands instead of writing them.
type Mock struct {
	mu     sync.Mutex
	sent   []protocol.Command
	closed bool
}

// NewMock creates an empty mock.
func NewMock() *Mock {
	return &Mock{}
}

// Send records cmd.
func (m *Mock) Send(cmd protocol.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, cmd)
}

// Sent returns a copy of every recorded command in order.
func (m *Mock) Sent() []protocol.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.Command(nil), m.sent...)
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

// FakePort is an in-memory Port. Writes accumulate in Written.
type FakePort struct {
	mu       sync.Mutex
	written  []byte
	flushes  int
	closed   bool
	WriteErr error
}

// Read returns no data.
func (p *FakePort) Read(b []byte) (int, error) {
	return 0, nil
}

// Write appends b unless WriteErr is set.
func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

// Flush counts calls.
func (p *FakePort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	return nil
}

// Close marks the port closed.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Written returns everything written so far.
func (p *FakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

// Flushes returns the number of Flush calls.
func (p *FakePort) Flushes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushes
}

// IsClosed reports whether Close was called.
func (p *FakePort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
