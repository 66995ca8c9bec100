// Package sorter runs the olive sorting cycle: drop, capture, split,
// display, classify, encode and send.
//
// A cycle never returns an error to its caller. Every outcome, including
// failures, is a Result carrying the operator-facing status line.
package sorter

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-olivesort/internal/log"
	"github.com/teslashibe/go-olivesort/pkg/classify"
	"github.com/teslashibe/go-olivesort/pkg/protocol"
	"github.com/teslashibe/go-olivesort/pkg/quadrant"
)

// Operator-facing status lines.
const (
	StatusWarmupFailed  = "Failed to capture image (warmup)!"
	StatusCaptureFailed = "Failed to capture image!"
	StatusSplit         = "Snapshot split into 4 parts."
)

// Camera yields frames with the warmup policy applied.
type Camera interface {
	Warmup(ctx context.Context) error
	Grab(ctx context.Context) (image.Image, error)
}

// Actuator accepts commands for the microcontroller. Send must not fail.
type Actuator interface {
	Send(cmd protocol.Command)
}

// Display receives progress from a running cycle.
type Display interface {
	SetState(cycleID string, s State)
	SetStatus(text string)
	ShowQuadrants(cycleID string, set quadrant.Set)
}

// Config holds cycle settings.
type Config struct {
	// GoodLabel is the model label encoded as a 1 bit.
	GoodLabel string

	// DropSettle is the pause after D before the camera is read.
	DropSettle time.Duration
}

// DefaultConfig returns the rig's cycle settings.
func DefaultConfig() Config {
	return Config{
		GoodLabel:  "GoodOlives",
		DropSettle: 200 * time.Millisecond,
	}
}

// Result is the outcome of one cycle.
type Result struct {
	ID       string                  `json:"id"`
	OK       bool                    `json:"ok"`
	Status   string                  `json:"status"`
	Labels   [quadrant.Count]string  `json:"labels"`
	Scores   [quadrant.Count]float64 `json:"scores"`
	Command  protocol.Command        `json:"command,omitempty"`
	Err      error                   `json:"-"`
	Started  time.Time               `json:"started"`
	Finished time.Time               `json:"finished"`
}

// Duration returns how long the cycle took.
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Sorter wires the cycle stages together. Run must not be called
// concurrently; Worker enforces that.
type Sorter struct {
	cfg      Config
	camera   Camera
	model    classify.Model
	actuator Actuator
	display  Display
	logger   *slog.Logger
}

// New creates a Sorter. display may be nil.
func New(cfg Config, cam Camera, model classify.Model, act Actuator, display Display) *Sorter {
	if display == nil {
		display = nopDisplay{}
	}
	return &Sorter{
		cfg:      cfg,
		camera:   cam,
		model:    model,
		actuator: act,
		display:  display,
		logger:   log.Component("sorter"),
	}
}

// Run executes one full cycle under a fresh ID.
func (s *Sorter) Run(ctx context.Context) Result {
	return s.RunCycle(ctx, uuid.NewString())
}

// RunCycle executes one full cycle. A failure at capture or earlier stops
// the cycle before anything is displayed, classified or sent.
func (s *Sorter) RunCycle(ctx context.Context, id string) Result {
	res := Result{ID: id, Started: time.Now()}
	logger := s.logger.With("cycle", res.ID)
	logger.Info("sorting cycle started")

	finish := func(ok bool, status string, err error) Result {
		res.OK, res.Status, res.Err = ok, status, err
		res.Finished = time.Now()
		s.display.SetStatus(status)
		s.display.SetState(res.ID, Idle)
		if err != nil {
			logger.Warn("sorting cycle failed", "status", status, "error", err)
		} else {
			logger.Info("sorting cycle complete",
				"labels", res.Labels, "command", res.Command.String(), "duration", res.Duration())
		}
		return res
	}

	s.display.SetState(res.ID, Dropping)
	s.actuator.Send(protocol.Drop())
	if err := wait(ctx, s.cfg.DropSettle); err != nil {
		return finish(false, errorStatus(err), err)
	}

	s.display.SetState(res.ID, Warming)
	if err := s.camera.Warmup(ctx); err != nil {
		return finish(false, StatusWarmupFailed, err)
	}

	s.display.SetState(res.ID, Capturing)
	frame, err := s.camera.Grab(ctx)
	if err != nil {
		return finish(false, StatusCaptureFailed, err)
	}

	s.display.SetState(res.ID, Splitting)
	set := quadrant.Split(frame)

	s.display.SetState(res.ID, Displaying)
	s.display.ShowQuadrants(res.ID, set)
	s.display.SetStatus(StatusSplit)

	s.display.SetState(res.ID, Classifying)
	results, err := classify.Quadrants(ctx, s.model, set)
	if err != nil {
		return finish(false, errorStatus(err), err)
	}
	res.Labels = classify.Labels(results)
	res.Scores = classify.Scores(results)
	logger.Info("all quadrants classified", "labels", res.Labels)

	s.display.SetState(res.ID, Encoding)
	res.Command = protocol.Sort(res.Labels, s.cfg.GoodLabel)

	s.display.SetState(res.ID, Sending)
	s.actuator.Send(res.Command)

	return finish(true, StatusSplit, nil)
}

// errorStatus renders an unexpected failure for the status line.
func errorStatus(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopDisplay struct{}

func (nopDisplay) SetState(string, State) {}
func (nopDisplay) SetStatus(string) {}
func (nopDisplay) ShowQuadrants(string, quadrant.Set) {}
