package classify

import (
	"errors"
	"math"
	"testing"
)

func TestBest(t *testing.T) {
	labels := []string{"BadOlives", "GoodOlives"}

	tests := []struct {
		name      string
		scores    map[string]float64
		wantLabel string
		wantScore float64
	}{
		{
			name:      "clear winner",
			scores:    map[string]float64{"BadOlives": 0.1, "GoodOlives": 0.9},
			wantLabel: "GoodOlives",
			wantScore: 0.9,
		},
		{
			name:      "tie goes to first label",
			scores:    map[string]float64{"BadOlives": 0.5, "GoodOlives": 0.5},
			wantLabel: "BadOlives",
			wantScore: 0.5,
		},
		{
			name:      "label outside vocabulary",
			scores:    map[string]float64{"BadOlives": 0.2, "Pit": 0.7},
			wantLabel: "Pit",
			wantScore: 0.7,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Best(tc.scores, labels)
			if err != nil {
				t.Fatalf("Best: %v", err)
			}
			if got.Label != tc.wantLabel || got.Score != tc.wantScore {
				t.Errorf("Best: got %s/%.2f, want %s/%.2f", got.Label, got.Score, tc.wantLabel, tc.wantScore)
			}
		})
	}
}

func TestBestEmpty(t *testing.T) {
	if _, err := Best(nil, nil); !errors.Is(err, ErrNoResult) {
		t.Errorf("Best(nil): expected ErrNoResult, got %v", err)
	}
}

func TestFromVector(t *testing.T) {
	res, err := fromVector([]float32{0.3, 0.7, 0.99}, []string{"BadOlives", "GoodOlives"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != "GoodOlives" {
		t.Errorf("extra outputs beyond labels should be ignored, got %s", res.Label)
	}
	if len(res.Scores) != 2 {
		t.Errorf("expected 2 scores, got %d", len(res.Scores))
	}
}

func TestSoftmax(t *testing.T) {
	v := []float32{1, 2, 3}
	softmax(v)

	var sum float64
	for _, x := range v {
		sum += float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("softmax sum = %f, want 1", sum)
	}
	if !(v[2] > v[1] && v[1] > v[0]) {
		t.Errorf("softmax should preserve order: %v", v)
	}
}

func TestResultIsUnknown(t *testing.T) {
	if !UnknownResult().IsUnknown() {
		t.Error("UnknownResult should be unknown")
	}
	if !(Result{}).IsUnknown() {
		t.Error("empty label should count as unknown")
	}
	if (Result{Label: "GoodOlives"}).IsUnknown() {
		t.Error("real label reported unknown")
	}
}
