package classify

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// fakeRunner speaks the runner socket protocol: JSON requests in,
// NUL-terminated JSON responses out.
type fakeRunner struct {
	hello    map[string]any
	classify func(req map[string]any) map[string]any
	requests chan map[string]any
}

func (f *fakeRunner) serve(ln net.Listener) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	dec := json.NewDecoder(conn)
	for {
		var req map[string]any
		if err := dec.Decode(&req); err != nil {
			return
		}
		if f.requests != nil {
			f.requests <- req
		}

		var resp map[string]any
		if _, ok := req["hello"]; ok {
			resp = f.hello
		} else {
			resp = f.classify(req)
		}
		resp["id"] = req["id"]

		raw, _ := json.Marshal(resp)
		if _, err := conn.Write(append(raw, 0)); err != nil {
			return
		}
	}
}

func defaultHello() map[string]any {
	return map[string]any{
		"success": true,
		"model_parameters": map[string]any{
			"image_input_width":   4,
			"image_input_height":  4,
			"image_channel_count": 3,
			"labels":              []string{"BadOlives", "GoodOlives"},
			"model_type":          "classification",
		},
		"project": map[string]any{"id": 1, "name": "olive-sorting", "deploy_version": 3},
	}
}

// startRunner returns an EIM connected to a fake runner.
func startRunner(t *testing.T, f *fakeRunner) *EIM {
	t.Helper()
	return startRunnerTimeout(t, f, 2*time.Second)
}

func startRunnerTimeout(t *testing.T, f *fakeRunner, timeout time.Duration) *EIM {
	t.Helper()

	// Unix socket paths are length-limited; t.TempDir can be too deep.
	dir, err := os.MkdirTemp("", "eim")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	ln, err := net.Listen("unix", filepath.Join(dir, "s"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go f.serve(ln)

	conn, err := net.Dial("unix", filepath.Join(dir, "s"))
	if err != nil {
		t.Fatal(err)
	}

	m, err := newEIMConn(conn, timeout)
	if err != nil {
		conn.Close()
		t.Fatalf("newEIMConn: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestEIMHello(t *testing.T) {
	m := startRunner(t, &fakeRunner{hello: defaultHello()})

	if got := m.Labels(); len(got) != 2 || got[1] != "GoodOlives" {
		t.Errorf("Labels: got %v", got)
	}
	p := m.Parameters()
	if p.ImageInputWidth != 4 || p.ImageInputHeight != 4 || p.ImageChannelCount != 3 {
		t.Errorf("Parameters: got %+v", p)
	}
	if m.Project().Name != "olive-sorting" {
		t.Errorf("Project: got %+v", m.Project())
	}
}

func TestEIMClassify(t *testing.T) {
	f := &fakeRunner{
		hello:    defaultHello(),
		requests: make(chan map[string]any, 4),
		classify: func(map[string]any) map[string]any {
			return map[string]any{
				"success": true,
				"result": map[string]any{
					"classification": map[string]float64{"BadOlives": 0.2, "GoodOlives": 0.8},
				},
			}
		},
	}
	m := startRunner(t, f)
	<-f.requests // hello

	res, err := m.Classify(context.Background(), solid(20, 20, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != "GoodOlives" || res.Score != 0.8 {
		t.Errorf("Classify: got %s/%.2f", res.Label, res.Score)
	}

	req := <-f.requests
	features, ok := req["classify"].([]any)
	if !ok || len(features) != 16 {
		t.Fatalf("expected 16 features, got %v", req["classify"])
	}
	if features[0].(float64) != 0x010203 {
		t.Errorf("feature[0] = %v, want %d", features[0], 0x010203)
	}
	if req["id"].(float64) != 2 {
		t.Errorf("request id = %v, want 2", req["id"])
	}
}

func TestEIMRecoversAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	m := startRunnerTimeout(t, &fakeRunner{
		hello: defaultHello(),
		classify: func(map[string]any) map[string]any {
			if calls.Add(1) == 1 {
				time.Sleep(800 * time.Millisecond)
			}
			return map[string]any{
				"success": true,
				"result": map[string]any{
					"classification": map[string]float64{"BadOlives": 0.3, "GoodOlives": 0.7},
				},
			}
		},
	}, 500*time.Millisecond)

	img := solid(4, 4, color.NRGBA{A: 255})
	if _, err := m.Classify(context.Background(), img); err == nil {
		t.Fatal("expected the slow classify to time out")
	}

	for i := 2; i <= 4; i++ {
		res, err := m.Classify(context.Background(), img)
		if err != nil {
			t.Fatalf("classify %d: %v", i, err)
		}
		if res.Label != "GoodOlives" {
			t.Errorf("classify %d: got %q", i, res.Label)
		}
	}
}

func TestEIMRunnerError(t *testing.T) {
	m := startRunner(t, &fakeRunner{
		hello: defaultHello(),
		classify: func(map[string]any) map[string]any {
			return map[string]any{"success": false, "error": "input size mismatch"}
		},
	})

	_, err := m.Classify(context.Background(), solid(4, 4, color.NRGBA{A: 255}))
	var re *RunnerError
	if !errors.As(err, &re) {
		t.Fatalf("expected RunnerError, got %v", err)
	}
	if re.Op != "classify" || re.Message != "input size mismatch" {
		t.Errorf("RunnerError: got %+v", re)
	}
}

func TestEIMNoClassification(t *testing.T) {
	m := startRunner(t, &fakeRunner{
		hello: defaultHello(),
		classify: func(map[string]any) map[string]any {
			return map[string]any{"success": true, "result": map[string]any{}}
		},
	})

	res, err := m.Classify(context.Background(), solid(4, 4, color.NRGBA{A: 255}))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != Unknown {
		t.Errorf("expected Unknown, got %q", res.Label)
	}
}

func TestEIMClosed(t *testing.T) {
	m := startRunner(t, &fakeRunner{hello: defaultHello()})
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := m.Classify(context.Background(), solid(4, 4, color.NRGBA{A: 255})); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestEIMRejectsNonImageModel(t *testing.T) {
	hello := defaultHello()
	hello["model_parameters"].(map[string]any)["image_input_width"] = 0

	dir, err := os.MkdirTemp("", "eim")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ln, err := net.Listen("unix", filepath.Join(dir, "s"))
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go (&fakeRunner{hello: hello}).serve(ln)

	conn, err := net.Dial("unix", filepath.Join(dir, "s"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := newEIMConn(conn, time.Second); !errors.Is(err, ErrIncompatibleModel) {
		t.Errorf("expected ErrIncompatibleModel, got %v", err)
	}
}
