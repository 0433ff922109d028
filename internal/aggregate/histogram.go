package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Histogram is binned data ready for plotting. Bin i covers
// [Dividers[i], Dividers[i+1]); the last bin also includes its upper edge.
type Histogram struct {
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
	// Dropped counts values outside the divider range.
	Dropped int `json:"dropped,omitempty"`
}

// FeatureHistogram bins values into equal-width bins spanning their minimum
// to maximum. If every value is equal the range is widened by 0.5 on each
// side. No values gives an empty histogram.
func FeatureHistogram(values []float64, bins int) Histogram {
	if len(values) == 0 || bins <= 0 {
		return Histogram{}
	}
	x := sortedCopy(values)
	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	return histogram(dividers, x)
}

// PixelHistogram bins every non-zero map cell, scaled by factor, into bins of
// the given width from 0 to max. Each pixel counts once, so wide features
// weigh more than narrow ones.
func PixelHistogram(m *mat.Dense, factor, width, max float64) Histogram {
	if width <= 0 || max <= width {
		return Histogram{}
	}
	n := int(math.Round(max/width)) + 1
	dividers := floats.Span(make([]float64, n), 0, max)

	var x []float64
	if m != nil {
		rows, cols := m.Dims()
		x = make([]float64, 0, rows*cols/4)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := m.At(i, j); v != 0 {
					x = append(x, v*factor)
				}
			}
		}
	}
	sort.Float64s(x)
	return histogram(dividers, x)
}

// histogram runs stat.Histogram on sorted x, closing the last bin and
// dropping values outside the dividers instead of panicking on them.
func histogram(dividers, x []float64) Histogram {
	last := len(dividers) - 1
	upper := dividers[last]
	dividers[last] = math.Nextafter(upper, math.Inf(1))

	start := sort.SearchFloat64s(x, dividers[0])
	end := sort.SearchFloat64s(x, dividers[last])
	inside := x[start:end]

	h := Histogram{
		Counts:  stat.Histogram(nil, dividers, inside, nil),
		Dropped: len(x) - len(inside),
	}
	dividers[last] = upper
	h.Dividers = dividers
	return h
}

func sortedCopy(values []float64) []float64 {
	x := make([]float64, len(values))
	copy(x, values)
	sort.Float64s(x)
	return x
}

// Summary describes a list of diameters in physical units.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes descriptive statistics. An empty list gives a zero
// Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	x := sortedCopy(values)
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		std = 0
	}
	return Summary{
		Count:  len(x),
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.Empirical, x, nil),
		StdDev: std,
		Min:    x[0],
		Max:    x[len(x)-1],
	}
}
