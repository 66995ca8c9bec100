// Package serial drives the sorter microcontroller over a USB serial link.
//
// The link is write-only from our side: one ASCII line per command, see
// protocol.Command. Sends never fail to the caller; a sorter that cannot
// reach its actuator still captures, classifies and reports.
package serial

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tarm "github.com/tarm/serial"

	"github.com/teslashibe/go-olivesort/internal/log"
	"github.com/teslashibe/go-olivesort/pkg/protocol"
)

// ErrNotOpen is returned when the channel has no open port.
var ErrNotOpen = errors.New("serial: port not open")

// Config holds serial link settings.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration

	// SettleDelay is how long to wait after opening for the board to
	// finish its reset-on-connect.
	SettleDelay time.Duration
}

// DefaultConfig returns the rig's ESP32 settings.
func DefaultConfig() Config {
	return Config{
		Port:        "/dev/ttyACM1",
		Baud:        115200,
		ReadTimeout: time.Second,
		SettleDelay: 2 * time.Second,
	}
}

// Port is an open serial device.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output.
	Flush() error
}

// Opener opens a port. Replaced in tests.
type Opener func(cfg Config) (Port, error)

// OpenTarm opens a real device with github.com/tarm/serial.
func OpenTarm(cfg Config) (Port, error) {
	return tarm.OpenPort(&tarm.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
}

// Channel is the line-oriented link to the microcontroller.
type Channel struct {
	cfg    Config
	open   Opener
	sleep  func(time.Duration)
	logger *slog.Logger

	mu   sync.Mutex
	port Port
}

// Option configures a Channel.
type Option func(*Channel)

// WithOpener replaces the device opener.
func WithOpener(o Opener) Option {
	return func(c *Channel) { c.open = o }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithSleep replaces the settle wait.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Channel) { c.sleep = fn }
}

// New creates an unopened channel.
func New(cfg Config, opts ...Option) *Channel {
	c := &Channel{
		cfg:    cfg,
		open:   OpenTarm,
		sleep:  time.Sleep,
		logger: log.Component("serial"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the channel configuration.
func (c *Channel) Config() Config {
	return c.cfg
}

// Open opens the port, waits for the board to reset, then discards
// whatever it printed while booting.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return nil
	}

	port, err := c.open(c.cfg)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", c.cfg.Port, err)
	}

	if c.cfg.SettleDelay > 0 {
		c.sleep(c.cfg.SettleDelay)
	}
	if err := port.Flush(); err != nil {
		c.logger.Debug("discard boot output failed", "error", err)
	}

	c.port = port
	c.logger.Info("serial connection established", "port", c.cfg.Port, "baud", c.cfg.Baud)
	return nil
}

// IsOpen reports whether the port is open.
func (c *Channel) IsOpen() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// Write writes cmd followed by a newline.
func (c *Channel) Write(cmd protocol.Command) error {
	if c == nil {
		return ErrNotOpen
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return ErrNotOpen
	}
	if _, err := c.port.Write(cmd.Line()); err != nil {
		return fmt.Errorf("write %q: %w", cmd.String(), err)
	}
	return nil
}

// Send is Write for callers that cannot act on a failure. It never
// returns an error or panics; failures are logged. Safe on a nil or
// unopened channel.
func (c *Channel) Send(cmd protocol.Command) {
	logger := log.Component("serial")
	if c != nil {
		logger = c.logger
	}

	err := c.Write(cmd)
	switch {
	case errors.Is(err, ErrNotOpen):
		logger.Warn("serial not connected", "command", cmd.String())
	case err != nil:
		logger.Error("serial write failed", "command", cmd.String(), "error", err)
	default:
		logger.Info("sent command", "command", cmd.String())
	}
}

// Close closes the port if open. Calling it again is a no-op.
func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	c.logger.Info("serial connection closed", "port", c.cfg.Port)
	return err
}
