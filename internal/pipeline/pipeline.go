// Package pipeline runs the two feature pipelines over a segmented mask.
//
// Both pipelines scan the mask in raster order, one 4-connected background
// component at a time, and share the extraction engine: contour tracing,
// the minimum-area rectangle, and an estimator from package diameter.
//
//   - Small measures compact particles (area below the threshold) with the
//     ellipse-equivalent diameter and forwards larger components in a
//     residual mask.
//   - Large refines each wire (area at or above the threshold) with
//     morphology, keeps the dominant piece, rotates it into the canonical
//     frame and scan-averages its width.
//
// Per-component failures are logged and listed in Result.Skipped; the scan
// carries on. Only invalid configuration aborts a run.
package pipeline

import (
	"image"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/wire-analysis/internal/aggregate"
	"github.com/ironsheep/wire-analysis/internal/config"
	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/geom"
	"github.com/ironsheep/wire-analysis/internal/logger"
	"github.com/ironsheep/wire-analysis/internal/mask"
	"github.com/ironsheep/wire-analysis/internal/morph"
	"github.com/ironsheep/wire-analysis/internal/normalize"
)

// Trace is what an Inspector sees for each measured component.
type Trace struct {
	Index  int
	Seed   image.Point
	Area   int
	Origin image.Point // image position of Refined's (0, 0)

	// Refined is the component mask after morphology (large) or as flooded
	// (small), cropped around the component.
	Refined *mask.Mask

	// Polygon and Rect are the selected boundary in image coordinates.
	Polygon geom.Polygon
	Rect    geom.OrientedRect

	// Canonical is nil for the small pipeline.
	Canonical *normalize.Canonical

	Diameter float64
}

// Inspector receives every successfully measured component. It is the hook
// for debug renderings.
type Inspector interface {
	Inspect(Trace)
}

// InspectorFunc adapts a function to Inspector.
type InspectorFunc func(Trace)

// Inspect implements Inspector.
func (f InspectorFunc) Inspect(t Trace) { f(t) }

// Runner holds what both pipelines need.
type Runner struct {
	cfg       *config.Config
	log       zerolog.Logger
	refiner   morph.Refiner
	inspector Inspector
}

// New builds a Runner. A nil config means config.Default().
func New(cfg *config.Config, log zerolog.Logger) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Runner{
		cfg:     cfg,
		log:     logger.Component(log, "pipeline"),
		refiner: morph.New(cfg.KernelSize),
	}
}

// WithInspector attaches a per-component hook.
func (r *Runner) WithInspector(in Inspector) *Runner {
	r.inspector = in
	return r
}

// Result is the output common to both pipelines. Diameters are in pixels.
type Result struct {
	Pipeline   string              `json:"pipeline"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Components int                 `json:"components"`
	Features   []float64           `json:"features"`
	Map        *mat.Dense          `json:"-"`
	Skipped    []aggregate.Skipped `json:"skipped"`
}

// SmallResult adds the residual mask of components left for the large
// pipeline. It uses the input polarity: those components are background,
// everything else is foreground.
type SmallResult struct {
	Result
	Residual  *mask.Mask `json:"-"`
	Forwarded int        `json:"forwarded"`
}

// LargeResult adds the count of components too small to be wires.
type LargeResult struct {
	Result
	Ignored int `json:"ignored"`
}

// Small runs the compact-particle pipeline with a default Runner.
func Small(m *mask.Mask, cfg *config.Config, log zerolog.Logger) (*SmallResult, error) {
	return New(cfg, log).Small(m)
}

// Large runs the wire pipeline with a default Runner.
func Large(m *mask.Mask, cfg *config.Config, log zerolog.Logger) (*LargeResult, error) {
	return New(cfg, log).Large(m)
}

func (r *Runner) validate(m *mask.Mask) error {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return apperrors.NewInvalidInput("mask is empty", nil)
	}
	if err := r.cfg.Validate(); err != nil {
		return apperrors.NewInvalidInput("invalid configuration", err)
	}
	return nil
}

// skip logs a local failure and records it; anything else is returned so the
// scan stops.
func (r *Runner) skip(agg *aggregate.Aggregator, c mask.Component, err error) error {
	if !apperrors.IsLocal(err) {
		return err
	}
	r.log.Warn().
		Int("x", c.Seed.X).
		Int("y", c.Seed.Y).
		Int("area", c.Area()).
		Str("kind", string(apperrors.KindOf(err))).
		Msg("component skipped")
	agg.Skip(c.Seed, c.Area(), err)
	return nil
}

func (r *Runner) inspect(t Trace) {
	if r.inspector != nil {
		r.inspector.Inspect(t)
	}
}

func finish(name string, m *mask.Mask, agg *aggregate.Aggregator, components int) Result {
	return Result{
		Pipeline:   name,
		Width:      m.Width,
		Height:     m.Height,
		Components: components,
		Features:   agg.Features(),
		Map:        agg.Map(),
		Skipped:    agg.Skipped(),
	}
}
