package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/wire-analysis/internal/geom"
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// RenderResult is a rendered image encoded as base64 PNG.
type RenderResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Outline colours used by the component renderers.
var (
	PolygonColor = color.RGBA{255, 0, 0, 255}
	RectColor    = color.RGBA{0, 200, 0, 255}
)

// EncodePNG encodes img for a tool response.
func EncodePNG(img image.Image) (*RenderResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &RenderResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// RenderComponent draws a cropped component mask with its boundary polygon
// and oriented rectangle on top. origin is the image position of the crop's
// top-left pixel; poly and rect are in image coordinates. scale enlarges the
// crop with nearest-neighbour sampling so thin outlines stay visible.
func RenderComponent(m *mask.Mask, origin image.Point, poly geom.Polygon, rect geom.OrientedRect, scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	base := imaging.Resize(m.Image(), m.Width*scale, m.Height*scale, imaging.NearestNeighbor)

	shift := r2.Vec{X: float64(-origin.X), Y: float64(-origin.Y)}
	DrawOutline(base, rect.P[:], shift, float64(scale), RectColor)
	DrawOutline(base, poly, shift, float64(scale), PolygonColor)
	return base
}

// RenderPolygon draws poly and rect on a black canvas just large enough to
// hold both. It is used for shapes that no longer line up with the mask,
// such as a polygon in the canonical frame.
func RenderPolygon(poly geom.Polygon, rect geom.OrientedRect, scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	lo, hi := poly.Bounds()
	for _, p := range rect.P {
		lo = r2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = r2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
	}
	const margin = 2
	w := int(math.Ceil(hi.X-lo.X)) + 2*margin + 1
	h := int(math.Ceil(hi.Y-lo.Y)) + 2*margin + 1

	canvas := imaging.New(w*scale, h*scale, color.Black)
	shift := r2.Vec{X: margin - math.Floor(lo.X), Y: margin - math.Floor(lo.Y)}
	DrawOutline(canvas, rect.P[:], shift, float64(scale), RectColor)
	DrawOutline(canvas, poly, shift, float64(scale), PolygonColor)
	return canvas
}

// DrawOutline draws the closed polyline through pts onto dst. Each vertex is
// shifted, then multiplied by scale, before rounding to a pixel. Vertices on
// the far edge of dst are pulled onto its last row or column; anything
// further out is clipped.
func DrawOutline(dst draw.Image, pts []r2.Vec, shift r2.Vec, scale float64, c color.Color) {
	n := len(pts)
	if n == 0 {
		return
	}
	b := dst.Bounds()
	toPixel := func(p r2.Vec) image.Point {
		q := r2.Scale(scale, r2.Add(p, shift))
		x, y := int(math.Round(q.X)), int(math.Round(q.Y))
		if x == b.Max.X {
			x--
		}
		if y == b.Max.Y {
			y--
		}
		return image.Pt(x, y)
	}
	for i := 0; i < n; i++ {
		drawLine(dst, toPixel(pts[i]), toPixel(pts[(i+1)%n]), c)
	}
}

// drawLine is Bresenham's algorithm, clipped to dst.
func drawLine(dst draw.Image, a, b image.Point, c color.Color) {
	bounds := dst.Bounds()
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		if image.Pt(x, y).In(bounds) {
			dst.Set(x, y, c)
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
