// Package morph refines component masks with binary erosion and dilation over
// a square structuring neighbourhood.
//
// The default build runs on github.com/anthonynsimon/bild/effect. Building
// with -tags gocv switches to OpenCV through gocv.io/x/gocv. Both backends
// treat set pixels as the shape being grown or shrunk.
package morph

import (
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// DefaultKernelSize is the side of the square neighbourhood (5x5).
const DefaultKernelSize = 5

// Refiner applies erosion and dilation passes. The zero value behaves like
// New(DefaultKernelSize).
type Refiner struct {
	// Radius is the half-width of the structuring element; 2 means 5x5.
	Radius int
}

// New returns a Refiner for an odd kernel size. Even sizes round down to the
// next odd size and anything below 1 falls back to the default.
func New(kernelSize int) Refiner {
	if kernelSize < 1 {
		kernelSize = DefaultKernelSize
	}
	return Refiner{Radius: kernelSize / 2}
}

func (r Refiner) radius() int {
	if r.Radius <= 0 {
		return DefaultKernelSize / 2
	}
	return r.Radius
}

// Erode shrinks the set region by n passes. The input is not modified.
func (r Refiner) Erode(m *mask.Mask, n int) *mask.Mask {
	if n <= 0 {
		return m.Clone()
	}
	return erode(m, r.radius(), n)
}

// Dilate grows the set region by n passes. The input is not modified.
func (r Refiner) Dilate(m *mask.Mask, n int) *mask.Mask {
	if n <= 0 {
		return m.Clone()
	}
	return dilate(m, r.radius(), n)
}

// Apply interprets a signed iteration count: negative dilates by the
// absolute value, zero or positive erodes.
func (r Refiner) Apply(m *mask.Mask, iterations int) *mask.Mask {
	if iterations < 0 {
		return r.Dilate(m, -iterations)
	}
	return r.Erode(m, iterations)
}

// Smooth closes small gaps and notches: n dilations followed by n erosions.
func (r Refiner) Smooth(m *mask.Mask, n int) *mask.Mask {
	return r.Erode(r.Dilate(m, n), n)
}

// Padding returns how far the given number of dilation passes can grow a
// shape, plus a two pixel margin. Cropping a component with this padding
// keeps it off the crop border for the whole refinement.
func (r Refiner) Padding(passes int) int {
	if passes < 0 {
		passes = -passes
	}
	return passes*r.radius() + 2
}
