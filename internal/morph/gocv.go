//go:build gocv

package morph

import (
	"image"

	"github.com/ironsheep/wire-analysis/internal/mask"
	"gocv.io/x/gocv"
)

// Backend names the morphology implementation compiled in.
const Backend = "gocv"

func erode(m *mask.Mask, radius, n int) *mask.Mask {
	return run(m, radius, n, false)
}

func dilate(m *mask.Mask, radius, n int) *mask.Mask {
	return run(m, radius, n, true)
}

func run(m *mask.Mask, radius, n int, grow bool) *mask.Mask {
	size := 2*radius + 1
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: size, Y: size})
	defer kernel.Close()

	src := toMat(m)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	for i := 0; i < n; i++ {
		if grow {
			gocv.Dilate(src, &dst, kernel)
		} else {
			gocv.Erode(src, &dst, kernel)
		}
		dst.CopyTo(&src)
	}
	return fromMat(src)
}

func toMat(m *mask.Mask) gocv.Mat {
	mat := gocv.NewMatWithSize(m.Height, m.Width, gocv.MatTypeCV8UC1)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Foreground(x, y) {
				mat.SetUCharAt(y, x, 255)
			} else {
				mat.SetUCharAt(y, x, 0)
			}
		}
	}
	return mat
}

func fromMat(mat gocv.Mat) *mask.Mask {
	out := mask.New(mat.Cols(), mat.Rows())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if mat.GetUCharAt(y, x) != 0 {
				out.Set(x, y, true)
			}
		}
	}
	return out
}
