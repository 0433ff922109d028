//go:build !gocv

package morph

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// Backend names the morphology implementation compiled in.
const Backend = "bild"

func erode(m *mask.Mask, radius, n int) *mask.Mask {
	var img image.Image = m.Image()
	for i := 0; i < n; i++ {
		img = effect.Erode(img, float64(radius))
	}
	return fromRGBA(img)
}

func dilate(m *mask.Mask, radius, n int) *mask.Mask {
	var img image.Image = m.Image()
	for i := 0; i < n; i++ {
		img = effect.Dilate(img, float64(radius))
	}
	return fromRGBA(img)
}

// fromRGBA reads back a pass result; any non-zero red channel is set.
func fromRGBA(img image.Image) *mask.Mask {
	b := img.Bounds()
	out := mask.New(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r != 0 {
				out.Set(x, y, true)
			}
		}
	}
	return out
}
