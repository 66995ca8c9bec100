package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backend names a model runtime.
type Backend string

const (
	BackendEIM  Backend = "eim"
	BackendONNX Backend = "onnx"
	BackendDNN  Backend = "dnn"
)

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{BackendEIM, BackendONNX, BackendDNN}
}

// ParseBackend maps a name to a Backend.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Config holds model loader configuration.
type Config struct {
	Backend   Backend
	ModelPath string // .eim executable or .onnx file

	// MetadataPath is the JSON sidecar for onnx/dnn models.
	// Empty means ModelPath with its extension replaced by ".json".
	MetadataPath string

	// SharedLibraryPath points at libonnxruntime for the onnx backend.
	// Empty uses the library's default lookup.
	SharedLibraryPath string

	// StartTimeout bounds how long the eim runner may take to open its
	// socket and answer hello.
	StartTimeout time.Duration

	// RequestTimeout bounds one eim classify round trip.
	RequestTimeout time.Duration
}

// DefaultConfig returns the configuration for the rig's Edge Impulse model.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendEIM,
		ModelPath:      "OliveSortingLib.eim",
		StartTimeout:   10 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// metadataPath resolves the sidecar location.
func (c Config) metadataPath() string {
	if c.MetadataPath != "" {
		return c.MetadataPath
	}
	ext := filepath.Ext(c.ModelPath)
	return strings.TrimSuffix(c.ModelPath, ext) + ".json"
}

// Layout is the memory order of the input tensor.
type Layout string

const (
	LayoutNCHW Layout = "nchw"
	LayoutNHWC Layout = "nhwc"
)

// Metadata describes an ONNX classifier: tensor names, shapes and the
// label for each output index.
type Metadata struct {
	Labels      []string `json:"labels"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	Layout      Layout   `json:"layout"`
	Softmax     bool     `json:"softmax"` // outputs are logits
}

// LoadMetadata reads and validates a metadata sidecar.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	if meta.InputName == "" {
		meta.InputName = "input"
	}
	if meta.OutputName == "" {
		meta.OutputName = "output"
	}
	if meta.Layout == "" {
		meta.Layout = LayoutNCHW
	}
	if len(meta.OutputShape) == 0 && len(meta.Labels) > 0 {
		meta.OutputShape = []int64{1, int64(len(meta.Labels))}
	}

	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Validate checks the metadata describes a single-image RGB classifier.
func (m Metadata) Validate() error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("%w: metadata has no labels", ErrIncompatibleModel)
	}
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 {
		return fmt.Errorf("%w: input shape %v is not [1,...] rank 4", ErrIncompatibleModel, m.InputShape)
	}
	if m.Layout != LayoutNCHW && m.Layout != LayoutNHWC {
		return fmt.Errorf("%w: layout %q", ErrIncompatibleModel, m.Layout)
	}
	if m.Channels() != 3 {
		return fmt.Errorf("%w: %d input channels, want 3", ErrIncompatibleModel, m.Channels())
	}
	w, h := m.InputSize()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: input size %dx%d", ErrIncompatibleModel, w, h)
	}
	if n := m.OutputLen(); n < int64(len(m.Labels)) {
		return fmt.Errorf("%w: %d outputs for %d labels", ErrIncompatibleModel, n, len(m.Labels))
	}
	return nil
}

// InputSize returns the model input width and height.
func (m Metadata) InputSize() (w, h int) {
	if len(m.InputShape) != 4 {
		return 0, 0
	}
	if m.Layout == LayoutNHWC {
		return int(m.InputShape[2]), int(m.InputShape[1])
	}
	return int(m.InputShape[3]), int(m.InputShape[2])
}

// Channels returns the input channel count.
func (m Metadata) Channels() int {
	if len(m.InputShape) != 4 {
		return 0
	}
	if m.Layout == LayoutNHWC {
		return int(m.InputShape[3])
	}
	return int(m.InputShape[1])
}

// OutputLen returns the number of output elements.
func (m Metadata) OutputLen() int64 {
	if len(m.OutputShape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range m.OutputShape {
		n *= d
	}
	return n
}
