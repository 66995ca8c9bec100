package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/go-olivesort/internal/log"
)

// Sentinel errors for capture failures.
var (
	// ErrWarmupRead is returned when a discarded warmup read fails.
	ErrWarmupRead = errors.New("camera: warmup read failed")

	// ErrFrameRead is returned when the authoritative read fails.
	ErrFrameRead = errors.New("camera: frame read failed")

	// ErrClosed is returned when reading from a closed device.
	ErrClosed = errors.New("camera: device closed")
)

// Capturer applies the warmup policy on top of a Device.
// It is not safe for concurrent use; the sorter drives it from one
// goroutine.
type Capturer struct {
	dev    Device
	config Config
	logger *slog.Logger
}

// NewCapturer wraps dev with the warmup policy from cfg.
func NewCapturer(dev Device, cfg Config) *Capturer {
	return &Capturer{
		dev:    dev,
		config: cfg,
		logger: log.Component("camera"),
	}
}

// Config returns the capture configuration.
func (c *Capturer) Config() Config {
	return c.config
}

// Warmup discards WarmupFrames reads. The first failed read aborts with
// ErrWarmupRead; there is no retry.
func (c *Capturer) Warmup(ctx context.Context) error {
	for i := 0; i < c.config.WarmupFrames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.dev.Read(); err != nil {
			c.logger.Warn("warmup read failed", "read", i+1, "error", err)
			return fmt.Errorf("%w (read %d of %d): %v", ErrWarmupRead, i+1, c.config.WarmupFrames, err)
		}
		if c.config.ReadDelay > 0 {
			if err := sleep(ctx, c.config.ReadDelay); err != nil {
				return err
			}
		}
	}
	c.logger.Debug("warmup complete", "frames", c.config.WarmupFrames)
	return nil
}

// Grab takes the authoritative frame.
func (c *Capturer) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := c.dev.Read()
	if err != nil {
		c.logger.Warn("final read failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	if img == nil || img.Bounds().Empty() {
		c.logger.Warn("final read returned an empty frame")
		return nil, fmt.Errorf("%w: empty frame", ErrFrameRead)
	}
	c.logger.Debug("frame captured", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// Capture runs Warmup followed by Grab.
func (c *Capturer) Capture(ctx context.Context) (image.Image, error) {
	if err := c.Warmup(ctx); err != nil {
		return nil, err
	}
	return c.Grab(ctx)
}

// Close releases the underlying device.
func (c *Capturer) Close() error {
	return c.dev.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
