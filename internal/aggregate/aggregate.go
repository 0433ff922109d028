// Package aggregate accumulates per-component diameters into the feature list
// and the per-pixel diameter map, merges maps from separate runs, and
// persists maps as NumPy .npy files.
package aggregate

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
)

// Skipped records a component that produced no diameter.
type Skipped struct {
	Seed    image.Point    `json:"seed"`
	Area    int            `json:"area"`
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// Aggregator collects the results of one scan. Diameters are in pixels.
type Aggregator struct {
	features []float64
	dmap     *mat.Dense
	skipped  []Skipped
}

// New returns an Aggregator whose diameter map is height rows by width
// columns, all zero.
func New(width, height int) *Aggregator {
	return &Aggregator{dmap: NewMap(width, height)}
}

// NewMap allocates a zero diameter map. gonum rejects empty matrices, so a
// zero-sized mask gets a nil map.
func NewMap(width, height int) *mat.Dense {
	if width <= 0 || height <= 0 {
		return nil
	}
	return mat.NewDense(height, width, nil)
}

// Record appends d to the feature list and writes it into the map at every
// component pixel. A diameter that is NaN, infinite or not positive is a
// DegenerateMeasurement and nothing is written.
func (a *Aggregator) Record(pixels []image.Point, d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return apperrors.NewDegenerateMeasurement(fmt.Sprintf("diameter %g", d))
	}
	a.features = append(a.features, d)
	if a.dmap == nil {
		return nil
	}
	rows, cols := a.dmap.Dims()
	for _, p := range pixels {
		if p.Y >= 0 && p.Y < rows && p.X >= 0 && p.X < cols {
			a.dmap.Set(p.Y, p.X, d)
		}
	}
	return nil
}

// Skip notes a component that failed locally. The feature list and the map
// are left untouched.
func (a *Aggregator) Skip(seed image.Point, area int, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.skipped = append(a.skipped, Skipped{Seed: seed, Area: area, Kind: apperrors.KindOf(err), Message: msg})
}

// Features returns a copy of the recorded diameters in scan order.
func (a *Aggregator) Features() []float64 {
	out := make([]float64, len(a.features))
	copy(out, a.features)
	return out
}

// Map returns the diameter map. It is shared, not copied.
func (a *Aggregator) Map() *mat.Dense {
	return a.dmap
}

// Skipped returns the components that produced no diameter.
func (a *Aggregator) Skipped() []Skipped {
	return a.skipped
}

// Merge overlays small onto dst: wherever small is non-zero it replaces the
// dst value. The maps must have identical dimensions; otherwise Merge returns
// a DimensionMismatch and dst is untouched.
func Merge(dst, small *mat.Dense) error {
	if dst == nil || small == nil {
		return apperrors.NewInvalidInput("merge needs two diameter maps", nil)
	}
	rows, cols := dst.Dims()
	srows, scols := small.Dims()
	if rows != srows || cols != scols {
		return apperrors.NewDimensionMismatch(rows, cols, srows, scols)
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := small.At(i, j); v != 0 {
				dst.Set(i, j, v)
			}
		}
	}
	return nil
}

// Scale returns values multiplied by factor.
func Scale(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}
	return out
}
