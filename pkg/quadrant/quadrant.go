// Package quadrant splits a captured frame into the four fixed crops of
// the 2x2 olive grid.
package quadrant

import (
	"image"

	"github.com/disintegration/imaging"
)

// Position identifies one cell of the grid. The numeric order is the
// raster order used everywhere a quadrant index appears, including the
// bit order of the sort command.
type Position int

const (
	TopLeft Position = iota
	TopRight
	BottomLeft
	BottomRight
)

// Count is the number of quadrants per frame.
const Count = 4

// Positions lists every position in raster order.
var Positions = [Count]Position{TopLeft, TopRight, BottomLeft, BottomRight}

// String returns the short pane key (tl, tr, bl, br).
func (p Position) String() string {
	switch p {
	case TopLeft:
		return "tl"
	case TopRight:
		return "tr"
	case BottomLeft:
		return "bl"
	case BottomRight:
		return "br"
	}
	return "unknown"
}

// Name returns a human-readable name.
func (p Position) Name() string {
	switch p {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// ParsePosition maps a pane key back to a Position.
func ParsePosition(s string) (Position, bool) {
	for _, p := range Positions {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// Set holds one crop per position, indexed by Position.
type Set [Count]image.Image

// Rects partitions bounds at the integer midpoint of width and height.
// With an odd dimension the right/bottom cells get the extra pixel.
func Rects(bounds image.Rectangle) [Count]image.Rectangle {
	minX, minY := bounds.Min.X, bounds.Min.Y
	maxX, maxY := bounds.Max.X, bounds.Max.Y
	midX := minX + bounds.Dx()/2
	midY := minY + bounds.Dy()/2

	return [Count]image.Rectangle{
		TopLeft:     image.Rect(minX, minY, midX, midY),
		TopRight:    image.Rect(midX, minY, maxX, midY),
		BottomLeft:  image.Rect(minX, midY, midX, maxY),
		BottomRight: image.Rect(midX, midY, maxX, maxY),
	}
}

// Split crops img into its four quadrants. Each crop is a fresh NRGBA
// image whose bounds start at (0,0).
func Split(img image.Image) Set {
	var set Set
	for i, r := range Rects(img.Bounds()) {
		set[i] = imaging.Crop(img, r)
	}
	return set
}
