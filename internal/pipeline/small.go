package pipeline

import (
	"github.com/ironsheep/wire-analysis/internal/aggregate"
	"github.com/ironsheep/wire-analysis/internal/contour"
	"github.com/ironsheep/wire-analysis/internal/diameter"
	"github.com/ironsheep/wire-analysis/internal/geom"
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// Small measures every component with area below the threshold. Components
// at or above it are cut out of the residual mask for the large pipeline.
//
// The first traced boundary of each particle is measured as is; particles
// are too small for simplification to help.
func (r *Runner) Small(m *mask.Mask) (*SmallResult, error) {
	if err := r.validate(m); err != nil {
		return nil, err
	}
	log := r.log.With().Str("pipeline", "small").Logger()

	agg := aggregate.New(m.Width, m.Height)
	large := mask.New(m.Width, m.Height)
	est := diameter.EllipseEquivalent{}
	components, forwarded := 0, 0

	err := mask.Scan(m, nil, func(s *mask.Scratch, c mask.Component) error {
		components++
		if c.Area() >= r.cfg.AreaThreshold {
			comp, origin := s.Component(0)
			large.Paste(comp, origin)
			forwarded++
			return nil
		}

		comp, origin := s.Component(0)
		pts, err := contour.First(contour.Extract(comp))
		if err != nil {
			return r.skip(agg, c, err)
		}
		poly := contour.ToPolygon(pts, origin)
		rect := geom.MinAreaRect(poly)

		d, err := est.Estimate(poly, rect)
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
			Float64("diameter", d).
			Msg("particle measured")
		r.inspect(Trace{
			Index:    components,
			Seed:     c.Seed,
			Area:     c.Area(),
			Origin:   origin,
			Refined:  comp,
			Polygon:  poly,
			Rect:     rect,
			Diameter: d,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &SmallResult{
		Result:    finish("small", m, agg, components),
		Residual:  large.Invert(),
		Forwarded: forwarded,
	}
	log.Info().
		Int("components", components).
		Int("measured", len(res.Features)).
		Int("forwarded", forwarded).
		Int("skipped", len(res.Skipped)).
		Msg("small pipeline finished")
	return res, nil
}
