package geom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// xAxis is the reference direction for edge angles.
var xAxis = r2.Vec{X: 1, Y: 0}

// OrientedRect is a rectangle at arbitrary rotation, given by its four corners
// in order. The edge P[0]->P[1] is the "first edge".
type OrientedRect struct {
	P [4]r2.Vec
}

// Sides returns the first edge length d1 and the adjacent edge length d2.
func (r OrientedRect) Sides() (d1, d2 float64) {
	return r2.Norm(r2.Sub(r.P[1], r.P[0])), r2.Norm(r2.Sub(r.P[2], r.P[1]))
}

// LongShort classifies the sides by magnitude. Equal sides keep d1 as long.
func (r OrientedRect) LongShort() (long, short float64) {
	d1, d2 := r.Sides()
	if d1 < d2 {
		return d2, d1
	}
	return d1, d2
}

// Long returns the longer side length.
func (r OrientedRect) Long() float64 {
	long, _ := r.LongShort()
	return long
}

// Short returns the shorter side length.
func (r OrientedRect) Short() float64 {
	_, short := r.LongShort()
	return short
}

// Area returns long x short.
func (r OrientedRect) Area() float64 {
	d1, d2 := r.Sides()
	return d1 * d2
}

// EdgeAngle returns the unsigned angle between the first edge and the x-axis,
// in [0, pi]. The cosine is clipped to [-1, 1] before acos so rounding never
// leaves the domain. A zero-length edge has angle 0.
func (r OrientedRect) EdgeAngle() float64 {
	return Angle(r2.Sub(r.P[1], r.P[0]), xAxis)
}

// Angle is the unsigned angle between two vectors.
func Angle(v1, v2 r2.Vec) float64 {
	n1, n2 := r2.Norm(v1), r2.Norm(v2)
	if n1 == 0 || n2 == 0 {
		return 0
	}
	c := r2.Dot(r2.Unit(v1), r2.Unit(v2))
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Shifted returns the rectangle with its vertex order rotated by one, so the
// last corner becomes the first.
func (r OrientedRect) Shifted() OrientedRect {
	return OrientedRect{P: [4]r2.Vec{r.P[3], r.P[0], r.P[1], r.P[2]}}
}

// Polygon returns the corners as a polygon.
func (r OrientedRect) Polygon() Polygon {
	return Polygon{r.P[0], r.P[1], r.P[2], r.P[3]}
}

// MinAreaRect computes the minimum-area rectangle enclosing the polygon.
//
// The winning frame is reported with its most horizontal side as the first
// edge (direction angle in (-pi/4, pi/4]) and the corners ordered
// min/min, max/min, max/max, min/max along that edge and its perpendicular.
// For an axis-aligned box this is top-left, top-right, bottom-right,
// bottom-left in image coordinates.
//
// Polygons without area (no vertices, one point, or points on one line)
// produce a rectangle with zero area.
func MinAreaRect(p Polygon) OrientedRect {
	u, ok := minAreaDirection(p)
	if !ok {
		return degenerateRect(p)
	}
	return frame(p, u)
}

// frame builds the rectangle enclosing pts with one side along u.
func frame(pts []r2.Vec, u r2.Vec) OrientedRect {
	d := mostHorizontal(u)
	w := perp(d)
	minU, maxU, minV, maxV := extents(pts, d, w)
	corner := func(s, t float64) r2.Vec {
		return r2.Add(r2.Scale(s, d), r2.Scale(t, w))
	}
	return OrientedRect{P: [4]r2.Vec{
		corner(minU, minV),
		corner(maxU, minV),
		corner(maxU, maxV),
		corner(minU, maxV),
	}}
}

func degenerateRect(p Polygon) OrientedRect {
	if len(p) == 0 {
		return OrientedRect{}
	}
	far, dist := p[0], 0.0
	for _, v := range p[1:] {
		if n := r2.Norm(r2.Sub(v, p[0])); n > dist {
			far, dist = v, n
		}
	}
	if dist == 0 {
		return OrientedRect{P: [4]r2.Vec{p[0], p[0], p[0], p[0]}}
	}
	return frame(p, r2.Unit(r2.Sub(far, p[0])))
}

// perp rotates v by +90 degrees.
func perp(v r2.Vec) r2.Vec {
	return r2.Vec{X: -v.Y, Y: v.X}
}

// mostHorizontal picks, among u, -u and its two perpendiculars, the direction
// whose angle lies in (-pi/4, pi/4].
func mostHorizontal(u r2.Vec) r2.Vec {
	candidates := [4]r2.Vec{u, r2.Scale(-1, u), perp(u), r2.Scale(-1, perp(u))}
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.X > best.X+1e-12:
			best = c
		case math.Abs(c.X-best.X) <= 1e-12 && c.Y > best.Y:
			best = c
		}
	}
	return best
}

func extents(pts []r2.Vec, u, v r2.Vec) (minU, maxU, minV, maxV float64) {
	minU, minV = math.Inf(1), math.Inf(1)
	maxU, maxV = math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		s, t := r2.Dot(p, u), r2.Dot(p, v)
		minU, maxU = math.Min(minU, s), math.Max(maxU, s)
		minV, maxV = math.Min(minV, t), math.Max(maxV, t)
	}
	return minU, maxU, minV, maxV
}

// ConvexHull returns the convex hull of the polygon's vertices using the
// monotone chain algorithm. Collinear points are dropped. The hull of fewer
// than three distinct points is those points.
func ConvexHull(p Polygon) []r2.Vec {
	pts := make([]r2.Vec, len(p))
	copy(pts, p)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	uniq := pts[:0]
	for i, v := range pts {
		if i == 0 || v != pts[i-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) < 3 {
		return uniq
	}

	cross := func(o, a, b r2.Vec) float64 {
		return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
	}

	hull := make([]r2.Vec, 0, 2*len(uniq))
	for _, v := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		v := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	return hull[:len(hull)-1]
}
