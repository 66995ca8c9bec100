package classify

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-olivesort/internal/log"
	"github.com/teslashibe/go-olivesort/pkg/quadrant"
)

// Quadrants classifies the four crops in quadrant order. Any model error
// aborts the whole set; an empty label becomes Unknown.
func Quadrants(ctx context.Context, m Model, set quadrant.Set) ([quadrant.Count]Result, error) {
	var results [quadrant.Count]Result
	logger := log.Component("classify")

	for _, pos := range quadrant.Positions {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		img := set[pos]
		if img == nil {
			return results, fmt.Errorf("quadrant %s: no image", pos.Name())
		}

		res, err := m.Classify(ctx, img)
		if err != nil {
			return results, fmt.Errorf("quadrant %s: %w", pos.Name(), err)
		}
		if res.IsUnknown() {
			res = UnknownResult()
		}

		logger.Info("quadrant classified",
			"quadrant", pos.String(), "label", res.Label, "score", fmt.Sprintf("%.3f", res.Score))
		results[pos] = res
	}
	return results, nil
}

// Labels extracts the label of each result.
func Labels(results [quadrant.Count]Result) [quadrant.Count]string {
	var labels [quadrant.Count]string
	for i, r := range results {
		labels[i] = r.Label
	}
	return labels
}

// Scores extracts the top score of each result.
func Scores(results [quadrant.Count]Result) [quadrant.Count]float64 {
	var scores [quadrant.Count]float64
	for i, r := range results {
		scores[i] = r.Score
	}
	return scores
}
