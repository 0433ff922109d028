//go:build gocv

package geom

import (
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"
)

// RectBackend names the minimum-area rectangle implementation compiled in.
const RectBackend = "gocv"

// fixedPoint is the subpixel scale applied before vertices are rounded into
// OpenCV's integer point vectors.
const fixedPoint = 1024

// axisSnap is the direction component below which a side counts as exactly
// horizontal or vertical. BoxPoints reports float32 corners.
const axisSnap = 1e-6

// minAreaDirection asks OpenCV for the minimum-area rectangle and returns the
// direction of its longer side. ok is false when the polygon has no area.
func minAreaDirection(p Polygon) (u r2.Vec, ok bool) {
	if len(ConvexHull(p)) < 3 {
		return r2.Vec{}, false
	}

	// Relative to the first vertex, so float32 corners keep their precision.
	ref := p[0]
	pts := make([]image.Point, len(p))
	for i, v := range p {
		pts[i] = image.Point{
			X: int(math.Round((v.X - ref.X) * fixedPoint)),
			Y: int(math.Round((v.Y - ref.Y) * fixedPoint)),
		}
	}
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()

	box := gocv.NewMat()
	defer box.Close()
	gocv.BoxPoints2f(gocv.MinAreaRect2(pv), &box)
	if box.Rows() < 3 {
		return r2.Vec{}, false
	}

	corner := func(i int) r2.Vec {
		return r2.Vec{X: float64(box.GetFloatAt(i, 0)), Y: float64(box.GetFloatAt(i, 1))}
	}
	e1, e2 := r2.Sub(corner(1), corner(0)), r2.Sub(corner(2), corner(1))
	if r2.Norm(e2) > r2.Norm(e1) {
		e1 = e2
	}
	if r2.Norm(e1) == 0 {
		return r2.Vec{}, false
	}

	u = r2.Unit(e1)
	switch {
	case math.Abs(u.Y) < axisSnap:
		u = r2.Vec{X: 1}
	case math.Abs(u.X) < axisSnap:
		u = r2.Vec{Y: 1}
	}
	return u, true
}
