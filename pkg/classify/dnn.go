package classify

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// DNN runs an ONNX classifier through OpenCV's DNN module. It shares the
// metadata sidecar format with the onnx backend but only accepts NCHW
// inputs, which is what BlobFromImage produces.
type DNN struct {
	net       gocv.Net
	meta      Metadata
	inputSize image.Point

	mu     sync.Mutex
	closed bool
}

// NewDNN loads the ONNX model into an OpenCV network.
func NewDNN(cfg Config) (*DNN, error) {
	meta, err := LoadMetadata(cfg.metadataPath())
	if err != nil {
		return nil, wrapError(BackendDNN, err)
	}
	if meta.Layout != LayoutNCHW {
		return nil, wrapError(BackendDNN, fmt.Errorf("%w: layout %s not supported, need nchw", ErrIncompatibleModel, meta.Layout))
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, wrapError(BackendDNN, fmt.Errorf("%w: failed to load %s", ErrIncompatibleModel, cfg.ModelPath))
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	w, h := meta.InputSize()
	return &DNN{
		net:       net,
		meta:      meta,
		inputSize: image.Pt(w, h),
	}, nil
}

// Classify implements Model.
func (d *DNN) Classify(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Result{}, ErrClosed
	}

	// ImageToMatRGB yields a BGR Mat; swapRB restores RGB order in the blob.
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return Result{}, wrapError(BackendDNN, fmt.Errorf("convert image: %w", err))
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return Result{}, wrapError(BackendDNN, fmt.Errorf("read output: %w", err))
	}

	out := append([]float32(nil), data...)
	if d.meta.Softmax && len(out) >= len(d.meta.Labels) {
		softmax(out[:len(d.meta.Labels)])
	}

	res, err := fromVector(out, d.meta.Labels)
	if err != nil {
		return UnknownResult(), nil
	}
	return res, nil
}

// Labels implements Model.
func (d *DNN) Labels() []string {
	return d.meta.Labels
}

// Close releases the network.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
