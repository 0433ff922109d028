// Package diameter turns a measured shape into one diameter value.
//
// ScanAverage measures elongated wires in the canonical frame.
// EllipseEquivalent measures compact particles.
package diameter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/geom"
)

// Estimator computes a diameter, in pixels, from a polygon and its oriented
// bounding rectangle.
type Estimator interface {
	Name() string
	Estimate(poly geom.Polygon, rect geom.OrientedRect) (float64, error)
}

// ScanAverage probes a canonical-frame polygon with vertical lines at every
// integer x from 0 to the rectangle's horizontal extent and averages the
// non-zero intersection lengths. Zero-length probes (past the tapered ends)
// are dropped rather than averaged in.
type ScanAverage struct{}

// Name implements Estimator.
func (ScanAverage) Name() string { return "scan_average" }

// Estimate implements Estimator. A polygon that no probe crosses is a
// DegenerateMeasurement.
func (s ScanAverage) Estimate(poly geom.Polygon, rect geom.OrientedRect) (float64, error) {
	samples := s.Samples(poly, rect)
	if len(samples) == 0 {
		return 0, apperrors.NewDegenerateMeasurement("no probe intersects the polygon")
	}
	return stat.Mean(samples, nil), nil
}

// Samples returns the non-zero probe lengths in probe order.
func (ScanAverage) Samples(poly geom.Polygon, rect geom.OrientedRect) []float64 {
	extent := rect.P[1].X - rect.P[0].X
	if extent < 0 || math.IsNaN(extent) {
		return nil
	}
	end := int(math.Floor(extent))

	samples := make([]float64, 0, end+1)
	for x := 0; x <= end; x++ {
		if l := poly.VerticalIntersection(float64(x)); l > 0 {
			samples = append(samples, l)
		}
	}
	return samples
}

// EllipseEquivalent treats the rectangle's sides as the axes of an ellipse
// and reports the diameter of the circle with the same area:
// area = pi*m1*m2/4 and d = 2*sqrt(area/pi).
type EllipseEquivalent struct{}

// Name implements Estimator.
func (EllipseEquivalent) Name() string { return "ellipse_equivalent" }

// Estimate implements Estimator. The polygon is not consulted. A rectangle
// with a zero-length side is a DegenerateMeasurement.
func (EllipseEquivalent) Estimate(_ geom.Polygon, rect geom.OrientedRect) (float64, error) {
	m1, m2 := rect.LongShort()
	area := math.Pi * m1 * m2 / 4
	if !(area > 0) {
		return 0, apperrors.NewDegenerateMeasurement(fmt.Sprintf("ellipse axes %g x %g", m1, m2))
	}
	return 2 * math.Sqrt(area/math.Pi), nil
}
