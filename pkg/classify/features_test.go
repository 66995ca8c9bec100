package classify

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestImageFeaturesRGB(t *testing.T) {
	img := solid(40, 30, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff})

	features := ImageFeatures(img, 8, 8, 3)
	if len(features) != 64 {
		t.Fatalf("len = %d, want 64", len(features))
	}
	for i, f := range features {
		if f != 0x123456 {
			t.Fatalf("feature %d = %#x, want 0x123456", i, int(f))
		}
	}
}

func TestImageFeaturesGrayscale(t *testing.T) {
	img := solid(10, 10, color.NRGBA{R: 200, G: 100, B: 50, A: 0xff})

	features := ImageFeatures(img, 4, 2, 1)
	if len(features) != 8 {
		t.Fatalf("len = %d, want 8", len(features))
	}

	l := luma(200, 100, 50)
	want := float64(l<<16 | l<<8 | l)
	if features[0] != want {
		t.Errorf("feature = %#x, want %#x", int(features[0]), int(want))
	}
}

// A wide input must be centre-cropped, not squashed.
func TestImageFeaturesCentreCrop(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 30, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 30; x++ {
			c := color.NRGBA{R: 0xff, A: 0xff}
			if x >= 10 && x < 20 {
				c = color.NRGBA{G: 0xff, A: 0xff}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	features := ImageFeatures(img, 10, 10, 3)
	if features[0] != 0x00ff00 || features[len(features)-1] != 0x00ff00 {
		t.Errorf("expected only the green centre band, got %#x ... %#x",
			int(features[0]), int(features[len(features)-1]))
	}
}
