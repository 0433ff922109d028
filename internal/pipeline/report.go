package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ironsheep/wire-analysis/internal/aggregate"
	"github.com/ironsheep/wire-analysis/internal/config"
)

// Report is a result converted to nanometres, ready for plotting or JSON.
type Report struct {
	Pipeline           string              `json:"pipeline"`
	NanometresPerPixel float64             `json:"nm_per_pixel"`
	Diameters          []float64           `json:"diameters_nm"`
	Summary            aggregate.Summary   `json:"summary_nm"`
	FeatureHistogram   aggregate.Histogram `json:"feature_histogram"`
	PixelHistogram     aggregate.Histogram `json:"pixel_histogram"`
	Skipped            []aggregate.Skipped `json:"skipped,omitempty"`
}

// Report scales the result with the configured calibration and bins it: one
// histogram counts features, the other counts pixels of the diameter map.
func (res *Result) Report(cfg *config.Config) Report {
	if cfg == nil {
		cfg = config.Default()
	}
	nm := cfg.NanometresPerPixel()
	diameters := aggregate.Scale(res.Features, nm)
	return Report{
		Pipeline:           res.Pipeline,
		NanometresPerPixel: nm,
		Diameters:          diameters,
		Summary:            aggregate.Summarize(diameters),
		FeatureHistogram:   aggregate.FeatureHistogram(diameters, cfg.HistogramBins),
		PixelHistogram:     aggregate.PixelHistogram(res.Map, nm, cfg.PixelBinWidth, cfg.PixelBinMax),
		Skipped:            res.Skipped,
	}
}

// Save writes the report to path as indented JSON.
func (r Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
