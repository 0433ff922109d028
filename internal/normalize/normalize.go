// Package normalize rotates and translates a wire polygon into the canonical
// frame the scan estimator expects: long axis along +x, first rectangle
// corner at the origin.
package normalize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/geom"
)

// DefaultCorrectionPasses bounds the rotation correction loop.
const DefaultCorrectionPasses = 3

// Tolerance is the vertical drift, in pixels, allowed between the first two
// rectangle corners before the rotation is considered wrong.
const Tolerance = 1.0

// Options tunes Canonicalize.
type Options struct {
	// CorrectionPasses is the number of correction attempts; zero or
	// negative means DefaultCorrectionPasses.
	CorrectionPasses int
}

func (o Options) passes() int {
	if o.CorrectionPasses <= 0 {
		return DefaultCorrectionPasses
	}
	return o.CorrectionPasses
}

// Canonical is a polygon in the canonical frame.
type Canonical struct {
	Polygon geom.Polygon
	Rect    geom.OrientedRect

	// Rotation is the total rotation applied, in radians.
	Rotation float64
	// Corrections counts the correction passes that fired.
	Corrections int
	// Aligned is false when the correction budget ran out with the first
	// edge still tilted by more than Tolerance.
	Aligned bool
}

// Canonicalize maps poly into the canonical frame.
//
// # Algorithm
//
//  1. Compute the minimum-area rectangle and the unsigned angle between its
//     first edge and the x-axis (acos of a clipped dot product).
//  2. Rotate the polygon by that angle around its bounding-box centre.
//  3. While passes remain and the first edge still rises or falls by more
//     than Tolerance, correct the rotation: the first pass reverses the
//     direction, later passes subtract the residual signed angle.
//  4. If the second rectangle edge is taller than the first edge is wide,
//     rotate by 90 degrees so the long axis is horizontal.
//  5. If the first corner lies right of the third, shift the corner order.
//  6. Translate so the first corner sits at the origin.
//
// Polygons with fewer than three vertices are a MalformedContour; polygons
// enclosing no area are a DegenerateMeasurement.
func Canonicalize(poly geom.Polygon, opts Options) (Canonical, error) {
	if len(poly) < 3 {
		return Canonical{}, apperrors.NewMalformedContour(fmt.Sprintf("polygon has %d vertices", len(poly)))
	}
	rect := geom.MinAreaRect(poly)
	if rect.Area() == 0 || poly.Area() == 0 {
		return Canonical{}, apperrors.NewDegenerateMeasurement("polygon encloses no area")
	}

	origin := poly.Center()
	theta := rect.EdgeAngle()
	applied := theta
	rotated := poly.Rotate(applied, origin)
	rect = geom.MinAreaRect(rotated)

	out := Canonical{Aligned: true}
	for pass := 0; pass < opts.passes(); pass++ {
		if !tilted(rect) {
			break
		}
		if pass == 0 {
			applied = -theta
		} else {
			residual := rect.EdgeAngle()
			if rect.P[1].Y > rect.P[0].Y {
				residual = -residual
			}
			applied += residual
		}
		out.Corrections++
		rotated = poly.Rotate(applied, origin)
		rect = geom.MinAreaRect(rotated)
	}
	if tilted(rect) {
		out.Aligned = false
	}

	xa := rect.P[1].X - rect.P[0].X
	ya := rect.P[2].Y - rect.P[1].Y
	if ya > xa {
		rotated = rotated.Rotate(math.Pi/2, rotated.Center())
		applied += math.Pi / 2
		rect = geom.MinAreaRect(rotated)
	}

	if rect.P[0].X > rect.P[2].X {
		rect = rect.Shifted()
	}

	anchor := rect.P[0]
	rotated = rotated.Translate(-anchor.X, -anchor.Y)
	rect = translateRect(rect, anchor)

	out.Polygon = rotated
	out.Rect = rect
	out.Rotation = applied
	return out, nil
}

func tilted(r geom.OrientedRect) bool {
	return math.Abs(r.P[1].Y-r.P[0].Y) > Tolerance
}

// translateRect shifts the rectangle by -anchor, keeping its corner order.
func translateRect(r geom.OrientedRect, anchor r2.Vec) geom.OrientedRect {
	for i := range r.P {
		r.P[i] = r2.Sub(r.P[i], anchor)
	}
	return r
}

// HorizontalExtent is the width of the canonical rectangle's first edge.
func (c Canonical) HorizontalExtent() float64 {
	return c.Rect.P[1].X - c.Rect.P[0].X
}

// VerticalExtent is the height of the canonical rectangle's second edge.
func (c Canonical) VerticalExtent() float64 {
	return c.Rect.P[2].Y - c.Rect.P[1].Y
}
