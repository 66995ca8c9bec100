package serial

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-olivesort/pkg/protocol"
)

func newTestChannel(t *testing.T, port *FakePort) (*Channel, *bytes.Buffer, *[]time.Duration) {
	t.Helper()

	var buf bytes.Buffer
	var slept []time.Duration
	c := New(DefaultConfig(),
		WithOpener(func(Config) (Port, error) { return port, nil }),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)
	return c, &buf, &slept
}

func TestOpenSettlesAndDiscards(t *testing.T) {
	port := &FakePort{}
	c, _, slept := newTestChannel(t, port)

	if err := c.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !c.IsOpen() {
		t.Error("IsOpen: expected true")
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Errorf("expected one 2s settle wait, got %v", *slept)
	}
	if port.Flushes() != 1 {
		t.Errorf("expected boot output to be discarded once, got %d flushes", port.Flushes())
	}

	// Reopen is a no-op.
	if err := c.Open(); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if len(*slept) != 1 {
		t.Error("second Open should not wait again")
	}
}

func TestOpenFailure(t *testing.T) {
	boom := errors.New("no such device")
	c := New(DefaultConfig(), WithOpener(func(Config) (Port, error) { return nil, boom }))

	err := c.Open()
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/dev/ttyACM1") {
		t.Errorf("error should name the port: %v", err)
	}
	if c.IsOpen() {
		t.Error("IsOpen: expected false")
	}
}

func TestSendWritesLines(t *testing.T) {
	port := &FakePort{}
	c, buf, _ := newTestChannel(t, port)
	if err := c.Open(); err != nil {
		t.Fatal(err)
	}

	c.Send(protocol.Drop())
	c.Send(protocol.Sort([4]string{"GoodOlives", "BadOlives", "GoodOlives", "BadOlives"}, "GoodOlives"))

	if got := port.Written(); got != "D\nS 1 0 1 0\n" {
		t.Errorf("written: got %q", got)
	}
	if !strings.Contains(buf.String(), "sent command") {
		t.Errorf("expected send log, got %q", buf.String())
	}
}

func TestSendUnopenedLogs(t *testing.T) {
	c, buf, _ := newTestChannel(t, &FakePort{})

	c.Send(protocol.Drop())

	if !strings.Contains(buf.String(), "serial not connected") {
		t.Errorf("expected not-connected log, got %q", buf.String())
	}
	if err := c.Write(protocol.Drop()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Write: expected ErrNotOpen, got %v", err)
	}
}

func TestSendNilChannel(t *testing.T) {
	var c *Channel
	c.Send(protocol.Drop()) // must not panic
	if c.IsOpen() {
		t.Error("nil channel reported open")
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestSendWriteErrorSwallowed(t *testing.T) {
	port := &FakePort{WriteErr: errors.New("device unplugged")}
	c, buf, _ := newTestChannel(t, port)
	if err := c.Open(); err != nil {
		t.Fatal(err)
	}

	c.Send(protocol.Drop())

	if !strings.Contains(buf.String(), "device unplugged") {
		t.Errorf("expected write failure log, got %q", buf.String())
	}
}

func TestCloseIdempotent(t *testing.T) {
	port := &FakePort{}
	c, _, _ := newTestChannel(t, port)

	if err := c.Close(); err != nil {
		t.Errorf("Close unopened: %v", err)
	}
	if err := c.Open(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !port.IsClosed() {
		t.Error("port not closed")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestMockRecords(t *testing.T) {
	m := NewMock()
	m.Send(protocol.Drop())
	m.Send(protocol.SortBits([4]bool{true, true, false, false}))

	got := m.Sent()
	if len(got) != 2 || got[0] != "D" || got[1] != "S 1 1 0 0" {
		t.Errorf("Sent: got %v", got)
	}
}
