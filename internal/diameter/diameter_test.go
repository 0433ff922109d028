package diameter

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/geom"
)

func createRect(w, h float64) geom.Polygon {
	return geom.Polygon{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

func TestScanAverage_RectangleMeasuresHeight(t *testing.T) {
	tests := []struct {
		w, h float64
	}{
		{200, 20},
		{50, 7},
		{3, 2},
		{1000, 0.5},
		{12.5, 4},
	}

	var est ScanAverage
	for _, tt := range tests {
		poly := createRect(tt.w, tt.h)
		got, err := est.Estimate(poly, geom.MinAreaRect(poly))
		if err != nil {
			t.Fatalf("%gx%g: %v", tt.w, tt.h, err)
		}
		if math.Abs(got-tt.h) > 1e-9 {
			t.Errorf("%gx%g: got %g, want %g", tt.w, tt.h, got, tt.h)
		}
	}
}

func TestScanAverage_ExcludesZeroSamples(t *testing.T) {
	// a diamond tapers to points at both ends
	diamond := geom.Polygon{{X: 0, Y: 5}, {X: 10, Y: 0}, {X: 20, Y: 5}, {X: 10, Y: 10}}
	rect := geom.OrientedRect{P: [4]r2.Vec{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}}}

	samples := ScanAverage{}.Samples(diamond, rect)
	for _, s := range samples {
		if s <= 0 {
			t.Fatalf("zero sample kept: %v", samples)
		}
	}
	// x = 0 and x = 20 touch only the tips
	if len(samples) != 19 {
		t.Errorf("samples: got %d, want 19", len(samples))
	}

	got, _ := ScanAverage{}.Estimate(diamond, rect)
	if math.Abs(got-100.0/19) > 1e-9 {
		t.Errorf("mean: got %g, want %g", got, 100.0/19)
	}
}

func TestScanAverage_Degenerate(t *testing.T) {
	poly := createRect(10, 5).Translate(100, 0) // outside the probe range
	rect := geom.OrientedRect{P: [4]r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}}}

	_, err := ScanAverage{}.Estimate(poly, rect)
	if !apperrors.IsKind(err, apperrors.KindDegenerateMeasurement) {
		t.Errorf("got %v, want DegenerateMeasurement", err)
	}
}

func TestEllipseEquivalent(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
		want float64
	}{
		{"30x10 blob", 30, 10, math.Sqrt(300)},
		{"square", 8, 8, 8},
		{"tall", 4, 16, 8},
	}

	var est EllipseEquivalent
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly := createRect(tt.w, tt.h)
			got, err := est.Estimate(poly, geom.MinAreaRect(poly))
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}

	got, _ := est.Estimate(nil, geom.MinAreaRect(createRect(30, 10)))
	if math.Abs(got-17.3205) > 1e-3 {
		t.Errorf("30x10: got %g, want about 17.32", got)
	}
}

func TestEllipseEquivalent_Degenerate(t *testing.T) {
	line := geom.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}}
	_, err := EllipseEquivalent{}.Estimate(line, geom.MinAreaRect(line))
	if !apperrors.IsKind(err, apperrors.KindDegenerateMeasurement) {
		t.Errorf("got %v, want DegenerateMeasurement", err)
	}
}

func TestEstimatorNames(t *testing.T) {
	estimators := []Estimator{ScanAverage{}, EllipseEquivalent{}}
	seen := map[string]bool{}
	for _, e := range estimators {
		if e.Name() == "" || seen[e.Name()] {
			t.Errorf("estimator name %q is empty or duplicated", e.Name())
		}
		seen[e.Name()] = true
	}
}
