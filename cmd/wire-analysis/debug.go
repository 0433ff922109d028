package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ironsheep/wire-analysis/internal/imaging"
	"github.com/ironsheep/wire-analysis/internal/pipeline"
)

// debugViews writes three renderings of every measured wire into dir, named
// by the component's scan index: N.tif is the refined component, N_boxed.tif
// adds the boundary and its rectangle, and N_trans_rot.tif shows the polygon
// in the canonical frame. The first write error stops further output.
type debugViews struct {
	dir     string
	written int
	err     error
}

type debugView struct {
	suffix string
	img    image.Image
}

func newDebugViews(dir string) (*debugViews, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug directory %s: %w", dir, err)
	}
	return &debugViews{dir: dir}, nil
}

// Inspect implements pipeline.Inspector.
func (d *debugViews) Inspect(t pipeline.Trace) {
	if d.err != nil || t.Refined == nil {
		return
	}

	views := []debugView{
		{"", t.Refined.Image()},
		{"_boxed", imaging.RenderComponent(t.Refined, t.Origin, t.Polygon, t.Rect, 1)},
	}
	if t.Canonical != nil {
		views = append(views, debugView{"_trans_rot", imaging.RenderPolygon(t.Canonical.Polygon, t.Canonical.Rect, 1)})
	}

	base := filepath.Join(d.dir, strconv.Itoa(t.Index))
	for _, v := range views {
		if err := imaging.SaveImage(base+v.suffix+".tif", v.img); err != nil {
			d.err = err
			return
		}
		d.written++
	}
}
