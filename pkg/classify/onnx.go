package classify

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNX runs an ONNX classifier through onnxruntime.
type ONNX struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	meta    Metadata

	mu     sync.Mutex
	closed bool
}

// NewONNX loads the model and its metadata sidecar and allocates the
// input/output tensors once.
func NewONNX(cfg Config) (*ONNX, error) {
	meta, err := LoadMetadata(cfg.metadataPath())
	if err != nil {
		return nil, wrapError(BackendONNX, err)
	}

	if !ort.IsInitialized() {
		if cfg.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, wrapError(BackendONNX, fmt.Errorf("initialize environment: %w", err))
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, wrapError(BackendONNX, fmt.Errorf("create input tensor: %w", err))
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, wrapError(BackendONNX, fmt.Errorf("create output tensor: %w", err))
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, wrapError(BackendONNX, fmt.Errorf("%w: %v", ErrIncompatibleModel, err))
	}

	return &ONNX{
		session: session,
		input:   input,
		output:  output,
		meta:    meta,
	}, nil
}

// Classify implements Model.
func (m *ONNX) Classify(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Result{}, ErrClosed
	}

	w, h := m.meta.InputSize()
	if err := FillTensor(m.input.GetData(), img, w, h, m.meta.Layout); err != nil {
		return Result{}, wrapError(BackendONNX, err)
	}

	if err := m.session.Run(); err != nil {
		return Result{}, wrapError(BackendONNX, fmt.Errorf("inference failed: %w", err))
	}

	out := append([]float32(nil), m.output.GetData()...)
	if m.meta.Softmax {
		softmax(out[:len(m.meta.Labels)])
	}

	res, err := fromVector(out, m.meta.Labels)
	if err != nil {
		return UnknownResult(), nil
	}
	return res, nil
}

// Labels implements Model.
func (m *ONNX) Labels() []string {
	return m.meta.Labels
}

// Close destroys the session and tensors. The shared onnxruntime
// environment stays up; it is process-wide.
func (m *ONNX) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if m.session != nil {
		err = m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
	return err
}
