//go:build !gocv

package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// RectBackend names the minimum-area rectangle implementation compiled in.
const RectBackend = "hull"

// minAreaDirection tries every convex hull edge as a rectangle side and
// returns the direction of the smallest enclosing rectangle. ok is false when
// the hull has no area.
func minAreaDirection(p Polygon) (u r2.Vec, ok bool) {
	hull := ConvexHull(p)
	if len(hull) < 3 {
		return r2.Vec{}, false
	}

	bestArea := math.Inf(1)
	n := len(hull)
	for i := 0; i < n; i++ {
		e := r2.Sub(hull[(i+1)%n], hull[i])
		if r2.Norm(e) == 0 {
			continue
		}
		dir := r2.Unit(e)
		minU, maxU, minV, maxV := extents(hull, dir, perp(dir))
		if area := (maxU - minU) * (maxV - minV); area < bestArea {
			bestArea, u = area, dir
		}
	}
	return u, true
}
