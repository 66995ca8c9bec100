package classify

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// FillTensor resizes img to w x h and writes it into dst as RGB floats in
// [0,1] using the given layout. dst must hold exactly 3*w*h values.
func FillTensor(dst []float32, img image.Image, w, h int, layout Layout) error {
	if len(dst) != 3*w*h {
		return fmt.Errorf("tensor size %d, want %d", len(dst), 3*w*h)
	}

	resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	b := resized.Bounds()
	plane := w * h

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rf := float32(r>>8) / 255.0
			gf := float32(g>>8) / 255.0
			bf := float32(bl>>8) / 255.0

			i := y*w + x
			if layout == LayoutNHWC {
				dst[i*3], dst[i*3+1], dst[i*3+2] = rf, gf, bf
			} else {
				dst[i], dst[plane+i], dst[2*plane+i] = rf, gf, bf
			}
		}
	}
	return nil
}
