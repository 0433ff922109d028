package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/wire-analysis/internal/aggregate"
	"github.com/ironsheep/wire-analysis/internal/contour"
	"github.com/ironsheep/wire-analysis/internal/diameter"
	"github.com/ironsheep/wire-analysis/internal/geom"
	"github.com/ironsheep/wire-analysis/internal/mask"
	"github.com/ironsheep/wire-analysis/internal/normalize"
)

// Large measures every component with area at or above the threshold.
//
// The whole feature set is first eroded (or, for negative Iterations,
// dilated) to split touching wires. Each component found afterwards is
// refined on its own from its raw pixels: the global step is undone, a
// dilate/erode smoothing pair removes boundary noise, and ExtraIterations
// more dilations follow. Boundaries are straightened before simplification so
// a slanted wire keeps its width. Smaller components are noise left by the
// global step and are ignored.
func (r *Runner) Large(m *mask.Mask) (*LargeResult, error) {
	if err := r.validate(m); err != nil {
		return nil, err
	}
	log := r.log.With().Str("pipeline", "large").Logger()
	cfg := r.cfg

	features := r.refiner.Apply(m.Invert(), cfg.Iterations)
	scan := features.Invert()

	pad := r.refiner.Padding(abs(cfg.Iterations) + cfg.SmoothingIterations + abs(cfg.ExtraIterations))
	opts := normalize.Options{CorrectionPasses: cfg.CorrectionPasses}
	est := diameter.ScanAverage{}

	agg := aggregate.New(m.Width, m.Height)
	components, ignored := 0, 0

	err := mask.Scan(scan, nil, func(s *mask.Scratch, c mask.Component) error {
		components++
		if c.Area() < cfg.AreaThreshold {
			ignored++
			return nil
		}

		raw, origin := s.Component(pad)
		refined := r.refiner.Apply(raw, -cfg.Iterations)
		refined = r.refiner.Smooth(refined, cfg.SmoothingIterations)
		refined = r.refiner.Apply(refined, -cfg.ExtraIterations)

		var polys []geom.Polygon
		for _, loop := range contour.Extract(refined) {
			if len(loop) < contour.MinPoints {
				continue
			}
			polys = append(polys, contour.Simplify(contour.Straighten(loop, origin), cfg.SimplifyTolerance))
		}
		best, err := contour.LargestRect(polys)
		if err != nil {
			return r.skip(agg, c, err)
		}

		canon, err := normalize.Canonicalize(best.Polygon, opts)
		if err != nil {
			return r.skip(agg, c, err)
		}
		if !canon.Aligned {
			log.Debug().
				Int("x", c.Seed.X).
				Int("y", c.Seed.Y).
				Int("corrections", canon.Corrections).
				Msg("rotation still tilted after correction passes")
		}

		d, err := est.Estimate(canon.Polygon, canon.Rect)
		if err != nil {
			return r.skip(agg, c, err)
		}
		if err := agg.Record(c.Pixels, d); err != nil {
			return r.skip(agg, c, err)
		}

		log.Debug().
			Int("index", components).
			Int("x", c.Seed.X).
			Int("y", c.Seed.Y).
			Int("area", c.Area()).
			Int("pieces", len(polys)).
			Float64("rotation", canon.Rotation).
			Float64("diameter", d).
			Msg("wire measured")
		r.inspect(Trace{
			Index:     components,
			Seed:      c.Seed,
			Area:      c.Area(),
			Origin:    origin,
			Refined:   refined,
			Polygon:   best.Polygon,
			Rect:      best.Rect,
			Canonical: &canon,
			Diameter:  d,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &LargeResult{Result: finish("large", m, agg, components), Ignored: ignored}
	log.Info().
		Int("components", components).
		Int("measured", len(res.Features)).
		Int("ignored", ignored).
		Int("skipped", len(res.Skipped)).
		Msg("large pipeline finished")
	return res, nil
}

// MergeMap overlays a small-pipeline diameter map onto the result's map.
// Non-zero small values win. Maps of different size leave the result
// untouched and return a DimensionMismatch.
func (res *LargeResult) MergeMap(small *mat.Dense) error {
	return aggregate.Merge(res.Map, small)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
