package geom

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// Polygon is a closed ring of vertices; the edge from the last vertex back to
// the first is implicit.
type Polygon []r2.Vec

// FromPoints converts integer contour points to a polygon, shifted by offset.
// A trailing vertex equal to the first one is dropped.
func FromPoints(pts []image.Point, offset image.Point) Polygon {
	poly := make(Polygon, 0, len(pts))
	for _, p := range pts {
		poly = append(poly, r2.Vec{X: float64(p.X + offset.X), Y: float64(p.Y + offset.Y)})
	}
	if n := len(poly); n > 1 && poly[0] == poly[n-1] {
		poly = poly[:n-1]
	}
	return poly
}

// Clone returns a copy of the polygon.
func (p Polygon) Clone() Polygon {
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Area returns the unsigned shoelace area.
func (p Polygon) Area() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += r2.Cross(p[i], p[(i+1)%n])
	}
	return math.Abs(sum) / 2
}

// Bounds returns the axis-aligned bounding box as min and max corners.
func (p Polygon) Bounds() (min, max r2.Vec) {
	if len(p) == 0 {
		return r2.Vec{}, r2.Vec{}
	}
	min, max = p[0], p[0]
	for _, v := range p[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return min, max
}

// Center returns the centre of the bounding box, the default rotation origin.
func (p Polygon) Center() r2.Vec {
	min, max := p.Bounds()
	return r2.Scale(0.5, r2.Add(min, max))
}

// Rotate returns the polygon rotated by angle radians around origin.
func (p Polygon) Rotate(angle float64, origin r2.Vec) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = r2.Rotate(v, angle, origin)
	}
	return out
}

// Translate returns the polygon shifted by (dx, dy).
func (p Polygon) Translate(dx, dy float64) Polygon {
	d := r2.Vec{X: dx, Y: dy}
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = r2.Add(v, d)
	}
	return out
}

// VerticalIntersection returns the total length of the vertical line X = x
// that lies inside the polygon.
//
// Edges are tested with a half-open rule (an edge crosses when exactly one of
// its endpoints satisfies X <= x), so a probe running along a vertical edge
// counts that edge on one side only and crossings always pair up.
func (p Polygon) VerticalIntersection(x float64) float64 {
	n := len(p)
	if n < 3 {
		return 0
	}

	ys := make([]float64, 0, 4)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		if (a.X <= x) == (b.X <= x) {
			continue
		}
		t := (x - a.X) / (b.X - a.X)
		ys = append(ys, a.Y+t*(b.Y-a.Y))
	}
	sort.Float64s(ys)

	var total float64
	for i := 0; i+1 < len(ys); i += 2 {
		total += ys[i+1] - ys[i]
	}
	return total
}
