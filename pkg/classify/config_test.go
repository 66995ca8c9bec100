package classify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "eim", want: BackendEIM},
		{in: " ONNX ", want: BackendONNX},
		{in: "dnn", want: BackendDNN},
		{in: "tflite", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseBackend(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownBackend) {
				t.Errorf("ParseBackend(%q): expected ErrUnknownBackend, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestMetadataPath(t *testing.T) {
	cfg := Config{ModelPath: "/models/olives.onnx"}
	if got := cfg.metadataPath(); got != "/models/olives.json" {
		t.Errorf("metadataPath: got %s", got)
	}
	cfg.MetadataPath = "/etc/meta.json"
	if got := cfg.metadataPath(); got != "/etc/meta.json" {
		t.Errorf("metadataPath override: got %s", got)
	}
}

func writeMeta(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMetadataDefaults(t *testing.T) {
	path := writeMeta(t, `{"labels":["BadOlives","GoodOlives"],"input_shape":[1,3,96,128]}`)

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if meta.InputName != "input" || meta.OutputName != "output" {
		t.Errorf("default names: %s/%s", meta.InputName, meta.OutputName)
	}
	if meta.Layout != LayoutNCHW {
		t.Errorf("default layout: %s", meta.Layout)
	}
	if w, h := meta.InputSize(); w != 128 || h != 96 {
		t.Errorf("InputSize: %dx%d", w, h)
	}
	if meta.OutputLen() != 2 {
		t.Errorf("OutputLen: %d", meta.OutputLen())
	}
}

func TestLoadMetadataNHWC(t *testing.T) {
	path := writeMeta(t, `{"labels":["a","b"],"input_shape":[1,64,32,3],"layout":"nhwc"}`)

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if w, h := meta.InputSize(); w != 32 || h != 64 {
		t.Errorf("InputSize: %dx%d", w, h)
	}
	if meta.Channels() != 3 {
		t.Errorf("Channels: %d", meta.Channels())
	}
}

func TestLoadMetadataRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no labels", `{"input_shape":[1,3,96,96]}`},
		{"rank 3", `{"labels":["a"],"input_shape":[3,96,96]}`},
		{"batch 2", `{"labels":["a"],"input_shape":[2,3,96,96]}`},
		{"grayscale", `{"labels":["a"],"input_shape":[1,1,96,96]}`},
		{"short output", `{"labels":["a","b","c"],"input_shape":[1,3,96,96],"output_shape":[1,2]}`},
		{"bad layout", `{"labels":["a"],"input_shape":[1,3,96,96],"layout":"chw"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadMetadata(writeMeta(t, tc.body))
			if !errors.Is(err, ErrIncompatibleModel) {
				t.Errorf("expected ErrIncompatibleModel, got %v", err)
			}
		})
	}
}

func TestOpenMissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.eim")

	if _, err := Open(cfg); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Open: expected ErrModelNotFound, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Backend: "tflite", ModelPath: path}
	if _, err := Open(cfg); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open: expected ErrUnknownBackend, got %v", err)
	}
}

func TestOpenONNXMissingMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(Config{Backend: BackendONNX, ModelPath: path})
	var be *BackendError
	if !errors.As(err, &be) || be.Backend != BackendONNX {
		t.Errorf("expected onnx BackendError, got %v", err)
	}
}
