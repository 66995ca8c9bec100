package classify

import (
	"image"

	"github.com/disintegration/imaging"
)

// ImageFeatures converts img to the raw feature vector an Edge Impulse
// image model expects: resized to cover w x h (shortest side fits),
// centre-cropped, then one value per pixel packed as 0xRRGGBB. For
// single-channel models the luma is packed into all three bytes.
func ImageFeatures(img image.Image, w, h, channels int) []float64 {
	fitted := imaging.Fill(img, w, h, imaging.Center, imaging.Linear)
	b := fitted.Bounds()

	features := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := fitted.Pix[y*fitted.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := uint32(row[x*4]), uint32(row[x*4+1]), uint32(row[x*4+2])
			if channels == 1 {
				l := luma(r, g, bl)
				r, g, bl = l, l, l
			}
			features = append(features, float64(r<<16|g<<8|bl))
		}
	}
	return features
}

// luma is the ITU-R 601-2 transform used for "L" mode conversion.
func luma(r, g, b uint32) uint32 {
	return (r*299 + g*587 + b*114) / 1000
}
