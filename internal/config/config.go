// Package config holds the tunable scalars of both feature pipelines.
//
// Values come from, in increasing priority: built-in defaults, an optional
// TOML file, and WIRE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries every policy knob of the small and large pipelines.
type Config struct {
	// AreaThreshold splits small blobs (area < threshold) from large wires.
	AreaThreshold int `toml:"area_threshold" json:"area_threshold"`

	// Iterations is the primary refiner count of the large pipeline.
	// Negative dilates the feature set globally, non-negative erodes it; each
	// component is then compensated in the opposite direction.
	Iterations int `toml:"iterations" json:"iterations"`

	// SmoothingIterations is the dilate-then-erode pair applied to every wire.
	SmoothingIterations int `toml:"smoothing_iterations" json:"smoothing_iterations"`

	// ExtraIterations dilates each wire once more after smoothing.
	ExtraIterations int `toml:"extra_iterations" json:"extra_iterations"`

	// KernelSize is the side of the square structuring neighbourhood.
	KernelSize int `toml:"kernel_size" json:"kernel_size"`

	// SimplifyTolerance is the Douglas-Peucker tolerance for wire polygons.
	SimplifyTolerance float64 `toml:"simplify_tolerance" json:"simplify_tolerance"`

	// CorrectionPasses bounds the rotation correction loop of the normalizer.
	CorrectionPasses int `toml:"correction_passes" json:"correction_passes"`

	// PixelsPerMicron converts pixel diameters to nanometres (1000 / ppm nm per px).
	PixelsPerMicron float64 `toml:"pixels_per_micron" json:"pixels_per_micron"`

	// MaskLevel is the luminance threshold used when decoding mask images.
	MaskLevel uint8 `toml:"mask_level" json:"mask_level"`

	// HistogramBins is the bin count of the per-feature histogram.
	HistogramBins int `toml:"histogram_bins" json:"histogram_bins"`

	// PixelBinWidth and PixelBinMax define the per-pixel histogram, in nm.
	PixelBinWidth float64 `toml:"pixel_bin_width" json:"pixel_bin_width"`
	PixelBinMax   float64 `toml:"pixel_bin_max" json:"pixel_bin_max"`
}

// Default returns the stock pipeline configuration.
func Default() *Config {
	return &Config{
		AreaThreshold:       1000,
		Iterations:          0,
		SmoothingIterations: 15,
		ExtraIterations:     0,
		KernelSize:          5,
		SimplifyTolerance:   3,
		CorrectionPasses:    3,
		PixelsPerMicron:     1000,
		MaskLevel:           128,
		HistogramBins:       10,
		PixelBinWidth:       50,
		PixelBinMax:         1500,
	}
}

// Load returns defaults overlaid with the TOML file at path (if non-empty)
// and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv returns defaults overlaid with WIRE_* environment variables.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) mergeFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	var err error
	if c.AreaThreshold, err = intFromEnv("WIRE_AREA_THRESHOLD", c.AreaThreshold); err != nil {
		return err
	}
	if c.Iterations, err = intFromEnv("WIRE_ITERATIONS", c.Iterations); err != nil {
		return err
	}
	if c.SmoothingIterations, err = intFromEnv("WIRE_SMOOTHING_ITERATIONS", c.SmoothingIterations); err != nil {
		return err
	}
	if c.ExtraIterations, err = intFromEnv("WIRE_EXTRA_ITERATIONS", c.ExtraIterations); err != nil {
		return err
	}
	if c.KernelSize, err = intFromEnv("WIRE_KERNEL_SIZE", c.KernelSize); err != nil {
		return err
	}
	if c.CorrectionPasses, err = intFromEnv("WIRE_CORRECTION_PASSES", c.CorrectionPasses); err != nil {
		return err
	}
	if c.SimplifyTolerance, err = floatFromEnv("WIRE_SIMPLIFY_TOLERANCE", c.SimplifyTolerance); err != nil {
		return err
	}
	if c.PixelsPerMicron, err = floatFromEnv("WIRE_PIXELS_PER_MICRON", c.PixelsPerMicron); err != nil {
		return err
	}
	level, err := intFromEnv("WIRE_MASK_LEVEL", int(c.MaskLevel))
	if err != nil {
		return err
	}
	if level < 1 || level > 255 {
		return fmt.Errorf("invalid WIRE_MASK_LEVEL: %d is outside 1..255", level)
	}
	c.MaskLevel = uint8(level)
	if c.HistogramBins, err = intFromEnv("WIRE_HISTOGRAM_BINS", c.HistogramBins); err != nil {
		return err
	}
	if c.PixelBinWidth, err = floatFromEnv("WIRE_PIXEL_BIN_WIDTH", c.PixelBinWidth); err != nil {
		return err
	}
	if c.PixelBinMax, err = floatFromEnv("WIRE_PIXEL_BIN_MAX", c.PixelBinMax); err != nil {
		return err
	}
	return nil
}

// Validate rejects values the pipelines cannot run with.
func (c *Config) Validate() error {
	if c.AreaThreshold <= 0 {
		return fmt.Errorf("area_threshold must be > 0 (got %d)", c.AreaThreshold)
	}
	if c.SmoothingIterations < 0 {
		return fmt.Errorf("smoothing_iterations must be >= 0 (got %d)", c.SmoothingIterations)
	}
	if c.KernelSize < 1 || c.KernelSize%2 == 0 {
		return fmt.Errorf("kernel_size must be a positive odd number (got %d)", c.KernelSize)
	}
	if c.SimplifyTolerance < 0 {
		return fmt.Errorf("simplify_tolerance must be >= 0 (got %g)", c.SimplifyTolerance)
	}
	if c.CorrectionPasses < 1 {
		return fmt.Errorf("correction_passes must be >= 1 (got %d)", c.CorrectionPasses)
	}
	if c.PixelsPerMicron <= 0 {
		return fmt.Errorf("pixels_per_micron must be > 0 (got %g)", c.PixelsPerMicron)
	}
	if c.HistogramBins <= 0 {
		return fmt.Errorf("histogram_bins must be > 0 (got %d)", c.HistogramBins)
	}
	if c.PixelBinWidth <= 0 || c.PixelBinMax <= c.PixelBinWidth {
		return fmt.Errorf("pixel histogram needs 0 < bin width < max (got %g, %g)", c.PixelBinWidth, c.PixelBinMax)
	}
	return nil
}

// NanometresPerPixel is the physical size of one pixel edge.
func (c *Config) NanometresPerPixel() float64 {
	return 1000 / c.PixelsPerMicron
}

func intFromEnv(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %q", key, value)
	}
	return f, nil
}
