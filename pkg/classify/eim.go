package classify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/teslashibe/go-olivesort/internal/log"
)

// ModelParameters is the subset of the runner's hello response we use.
type ModelParameters struct {
	ImageInputWidth   int      `json:"image_input_width"`
	ImageInputHeight  int      `json:"image_input_height"`
	ImageChannelCount int      `json:"image_channel_count"`
	Labels            []string `json:"labels"`
	ModelType         string   `json:"model_type"`
	Sensor            int      `json:"sensor"`
}

// ProjectInfo identifies the Edge Impulse project the model came from.
type ProjectInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	DeployVersion int    `json:"deploy_version"`
}

type eimRequest struct {
	ID       int       `json:"id"`
	Hello    int       `json:"hello,omitempty"`
	Classify []float64 `json:"classify,omitempty"`
}

type eimResponse struct {
	ID              int              `json:"id"`
	Success         bool             `json:"success"`
	Error           string           `json:"error,omitempty"`
	ModelParameters *ModelParameters `json:"model_parameters,omitempty"`
	Project         *ProjectInfo     `json:"project,omitempty"`
	Result          *struct {
		Classification map[string]float64 `json:"classification,omitempty"`
	} `json:"result,omitempty"`
}

// EIM drives an Edge Impulse Linux model executable. The executable is
// started with a socket path, listens on it, and answers JSON requests
// with NUL-terminated JSON responses.
type EIM struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration

	params  ModelParameters
	project ProjectInfo

	cmd     *exec.Cmd
	exited  chan struct{}
	tempDir string

	logger *slog.Logger
	mu     sync.Mutex
	nextID int
	closed bool

	// partial holds bytes of a response cut off by a read deadline.
	partial []byte
}

// NewEIM starts the runner executable and performs the hello handshake.
func NewEIM(cfg Config) (*EIM, error) {
	path, err := filepath.Abs(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("resolve model path: %w", err)
	}

	dir, err := os.MkdirTemp("", "olivesort-eim-")
	if err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	socket := filepath.Join(dir, "runner.sock")

	cmd := exec.Command(path, socket)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, wrapError(BackendEIM, fmt.Errorf("start runner: %w", err))
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartTimeout)
	defer cancel()

	conn, err := waitForSocket(ctx, socket, exited)
	if err != nil {
		cmd.Process.Kill()
		<-exited
		os.RemoveAll(dir)
		return nil, wrapError(BackendEIM, err)
	}

	m, err := newEIMConn(conn, cfg.RequestTimeout)
	if err != nil {
		conn.Close()
		cmd.Process.Kill()
		<-exited
		os.RemoveAll(dir)
		return nil, err
	}
	m.cmd, m.exited, m.tempDir = cmd, exited, dir
	return m, nil
}

// waitForSocket polls until the runner accepts connections on socket.
func waitForSocket(ctx context.Context, socket string, exited <-chan struct{}) (net.Conn, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(socket); err == nil {
			conn, err := net.Dial("unix", socket)
			if err == nil {
				return conn, nil
			}
		}
		select {
		case <-exited:
			return nil, errors.New("runner exited before opening its socket")
		case <-ctx.Done():
			return nil, fmt.Errorf("runner socket %s: %w", socket, ctx.Err())
		case <-ticker.C:
		}
	}
}

// newEIMConn performs the hello handshake over an open connection.
func newEIMConn(conn net.Conn, timeout time.Duration) (*EIM, error) {
	m := &EIM{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
		logger:  log.Component("classify").With("backend", BackendEIM),
	}

	resp, err := m.roundTrip(context.Background(), "hello", eimRequest{Hello: 1})
	if err != nil {
		return nil, err
	}
	if resp.ModelParameters == nil {
		return nil, wrapError(BackendEIM, fmt.Errorf("%w: hello response has no model_parameters", ErrIncompatibleModel))
	}

	p := *resp.ModelParameters
	if p.ImageInputWidth <= 0 || p.ImageInputHeight <= 0 {
		return nil, wrapError(BackendEIM, fmt.Errorf("%w: not an image model", ErrIncompatibleModel))
	}
	if p.ImageChannelCount != 1 && p.ImageChannelCount != 3 {
		return nil, wrapError(BackendEIM, fmt.Errorf("%w: %d image channels", ErrIncompatibleModel, p.ImageChannelCount))
	}
	m.params = p
	if resp.Project != nil {
		m.project = *resp.Project
	}

	m.logger.Info("runner ready",
		"project", m.project.Name,
		"input", fmt.Sprintf("%dx%dx%d", p.ImageInputWidth, p.ImageInputHeight, p.ImageChannelCount),
		"labels", p.Labels)
	return m, nil
}

// roundTrip sends one request and reads responses until the one
// matching its ID arrives.
func (m *EIM) roundTrip(ctx context.Context, op string, req eimRequest) (*eimResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	m.nextID++
	req.ID = m.nextID

	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if m.timeout > 0 {
		m.conn.SetDeadline(deadline)
		defer m.conn.SetDeadline(time.Time{})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	if _, err := m.conn.Write(payload); err != nil {
		return nil, wrapError(BackendEIM, fmt.Errorf("send %s: %w", op, err))
	}

	// A response to an earlier request that timed out may still be in
	// flight. Skip anything older than req.ID.
	for {
		resp, err := m.readResponse(op)
		if err != nil {
			return nil, err
		}
		if resp.ID != 0 && resp.ID < req.ID {
			m.logger.Debug("discarding stale response", "op", op, "id", resp.ID, "want", req.ID)
			continue
		}
		if !resp.Success {
			msg := resp.Error
			if msg == "" {
				msg = "unspecified error"
			}
			return nil, &RunnerError{Op: op, Message: msg}
		}
		if resp.ID != req.ID {
			return nil, wrapError(BackendEIM, fmt.Errorf("%s response id %d, want %d", op, resp.ID, req.ID))
		}
		return resp, nil
	}
}

// readResponse reads one NUL-terminated response. Bytes read before a
// deadline expires are kept so the next read starts on a message
// boundary.
func (m *EIM) readResponse(op string) (*eimResponse, error) {
	raw, err := m.reader.ReadBytes(0)
	if err != nil {
		m.partial = append(m.partial, raw...)
		return nil, wrapError(BackendEIM, fmt.Errorf("read %s response: %w", op, err))
	}
	if len(m.partial) > 0 {
		raw = append(m.partial, raw...)
		m.partial = nil
	}
	raw = raw[:len(raw)-1]

	var resp eimResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, wrapError(BackendEIM, fmt.Errorf("decode %s response: %w", op, err))
	}
	return &resp, nil
}

// Classify implements Model.
func (m *EIM) Classify(ctx context.Context, img image.Image) (Result, error) {
	features := ImageFeatures(img, m.params.ImageInputWidth, m.params.ImageInputHeight, m.params.ImageChannelCount)

	resp, err := m.roundTrip(ctx, "classify", eimRequest{Classify: features})
	if err != nil {
		return Result{}, err
	}
	if resp.Result == nil || len(resp.Result.Classification) == 0 {
		m.logger.Warn("no classification result")
		return UnknownResult(), nil
	}

	res, err := Best(resp.Result.Classification, m.params.Labels)
	if errors.Is(err, ErrNoResult) {
		return UnknownResult(), nil
	}
	return res, err
}

// Labels implements Model.
func (m *EIM) Labels() []string {
	return m.params.Labels
}

// Parameters returns the model parameters from the hello handshake.
func (m *EIM) Parameters() ModelParameters {
	return m.params
}

// Project returns the Edge Impulse project info.
func (m *EIM) Project() ProjectInfo {
	return m.project
}

// Close stops the runner and removes its socket.
func (m *EIM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	err := m.conn.Close()
	if m.cmd != nil && m.cmd.Process != nil {
		m.cmd.Process.Signal(os.Interrupt)
		select {
		case <-m.exited:
		case <-time.After(2 * time.Second):
			m.cmd.Process.Kill()
			<-m.exited
		}
	}
	if m.tempDir != "" {
		os.RemoveAll(m.tempDir)
	}
	return err
}
