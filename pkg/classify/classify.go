// Package classify loads the olive quality model and runs it over the
// quadrant crops of a frame.
//
// Three backends implement Model:
//
//	eim   Edge Impulse Linux model executable (.eim), driven over its
//	      Unix socket protocol
//	onnx  ONNX model through onnxruntime
//	dnn   ONNX model through OpenCV's DNN module
//
// Example usage:
//
//	model, err := classify.Open(classify.DefaultConfig())
//	if err != nil {
//	    return err // fatal at startup
//	}
//	defer model.Close()
//
//	results, err := classify.Quadrants(ctx, model, quadrant.Split(frame))
package classify

import (
	"context"
	"image"

	"github.com/teslashibe/go-olivesort/pkg/protocol"
)

// Unknown is the label used when the model gives no usable result.
const Unknown = protocol.UnknownLabel

// Model is a loaded classifier. Implementations serialize calls
// internally; the sorter only ever calls from one goroutine.
type Model interface {
	// Classify returns the top label for img. A model that runs but
	// produces no classification returns an Unknown result and no error.
	Classify(ctx context.Context, img image.Image) (Result, error)

	// Labels returns the label vocabulary in model output order.
	Labels() []string

	// Close stops the model and releases its resources.
	Close() error
}

// Result is the classification of one image.
type Result struct {
	Label  string             `json:"label"`
	Score  float64            `json:"score"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// UnknownResult is the result substituted when nothing usable came back.
func UnknownResult() Result {
	return Result{Label: Unknown}
}

// IsUnknown reports whether r carries the Unknown sentinel.
func (r Result) IsUnknown() bool {
	return r.Label == Unknown || r.Label == ""
}

// Best picks the highest score. Labels fixes the iteration order so ties
// resolve to the earliest label; scores for labels not in the list are
// still considered, after the listed ones, in sorted key order.
func Best(scores map[string]float64, labels []string) (Result, error) {
	if len(scores) == 0 {
		return Result{}, ErrNoResult
	}

	order := make([]string, 0, len(scores))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if _, ok := scores[l]; ok && !seen[l] {
			order = append(order, l)
			seen[l] = true
		}
	}
	for _, l := range sortedKeys(scores) {
		if !seen[l] {
			order = append(order, l)
		}
	}

	best := Result{Label: order[0], Score: scores[order[0]], Scores: scores}
	for _, l := range order[1:] {
		if scores[l] > best.Score {
			best.Label, best.Score = l, scores[l]
		}
	}
	return best, nil
}

// fromVector maps a dense output vector onto labels and picks the best.
func fromVector(out []float32, labels []string) (Result, error) {
	n := len(labels)
	if len(out) < n {
		n = len(out)
	}
	scores := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		scores[labels[i]] = float64(out[i])
	}
	return Best(scores, labels)
}
