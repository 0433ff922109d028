package contour

import (
	"fmt"
	"image"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"gonum.org/v1/gonum/spatial/r2"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/geom"
)

// MinPoints is the smallest vertex count that encloses an area.
const MinPoints = 3

// ToPolygon converts a traced loop to a polygon in image coordinates.
func ToPolygon(points []image.Point, offset image.Point) geom.Polygon {
	return geom.FromPoints(points, offset)
}

// Straighten converts a traced loop to a polygon in image coordinates with
// every unit-length edge replaced by its midpoint. The pixel staircase along
// a slanted boundary then runs through the step midpoints on the true edge,
// while corners between two longer edges stay exact. Loops that would keep
// fewer than three vertices fall back to ToPolygon.
func Straighten(points []image.Point, offset image.Point) geom.Polygon {
	n := len(points)
	unit := func(i int) bool {
		d := points[(i+1)%n].Sub(points[i])
		return d.X*d.X+d.Y*d.Y == 1
	}

	out := make(geom.Polygon, 0, n)
	for i, p := range points {
		if !unit(i) && !unit((i+n-1)%n) {
			out = append(out, r2.Vec{X: float64(p.X + offset.X), Y: float64(p.Y + offset.Y)})
		}
		if unit(i) {
			q := points[(i+1)%n]
			out = append(out, r2.Vec{
				X: float64(p.X+q.X)/2 + float64(offset.X),
				Y: float64(p.Y+q.Y)/2 + float64(offset.Y),
			})
		}
	}
	if len(out) < MinPoints {
		return ToPolygon(points, offset)
	}
	return out
}

// First returns the first loop, the choice made for compact blobs. A missing
// loop or one with fewer than three points is a MalformedContour.
func First(loops [][]image.Point) ([]image.Point, error) {
	if len(loops) == 0 {
		return nil, apperrors.NewMalformedContour("no boundary found")
	}
	if n := len(loops[0]); n < MinPoints {
		return nil, apperrors.NewMalformedContour(fmt.Sprintf("boundary has %d points", n))
	}
	return loops[0], nil
}

// Candidate is a polygon with its minimum-area rectangle.
type Candidate struct {
	Polygon geom.Polygon
	Rect    geom.OrientedRect
}

// LargestRect picks the polygon whose oriented bounding rectangle has the
// largest long x short product. Refinement can split one component into
// several pieces and only the dominant piece is measured. Polygons with fewer
// than three vertices are ignored; if none remain the result is a
// MalformedContour. Ties keep the earlier polygon.
func LargestRect(polys []geom.Polygon) (Candidate, error) {
	var best Candidate
	bestArea := -1.0
	for _, p := range polys {
		if len(p) < MinPoints {
			continue
		}
		r := geom.MinAreaRect(p)
		if a := r.Area(); a > bestArea {
			best, bestArea = Candidate{Polygon: p, Rect: r}, a
		}
	}
	if bestArea < 0 {
		return Candidate{}, apperrors.NewMalformedContour(
			fmt.Sprintf("none of %d boundaries has %d points", len(polys), MinPoints))
	}
	return best, nil
}

// Simplify reduces the ring with Douglas-Peucker at the given tolerance. If
// the result would fall below three vertices the input ring is returned.
func Simplify(p geom.Polygon, tolerance float64) geom.Polygon {
	if tolerance <= 0 || len(p) < MinPoints {
		return p
	}

	ls := make(orb.LineString, 0, len(p)+1)
	for _, v := range p {
		ls = append(ls, orb.Point{v.X, v.Y})
	}
	ls = append(ls, ls[0])

	s := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone())
	result, ok := s.(orb.LineString)
	if !ok || len(result) < MinPoints+1 {
		return p
	}

	out := make(geom.Polygon, 0, len(result))
	for _, pt := range result {
		out = append(out, r2.Vec{X: pt[0], Y: pt[1]})
	}
	if out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	if len(out) < MinPoints || out.Area() == 0 {
		return p
	}
	return out
}
