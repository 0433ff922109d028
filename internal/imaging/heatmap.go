package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// Palette maps diameters to colours. Values blend from Low to High in HCL
// space; cells without a diameter are painted Background.
type Palette struct {
	Low        colorful.Color
	High       colorful.Color
	Background color.Color
}

// DefaultPalette runs from blue for thin features to red for thick ones on
// black.
func DefaultPalette() Palette {
	low, _ := colorful.Hex("#2c7bb6")
	high, _ := colorful.Hex("#d7191c")
	return Palette{Low: low, High: high, Background: color.Black}
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB".
func ParseHexColor(hex string) (colorful.Color, error) {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return c, nil
}

// Color returns the colour for diameter v on a scale from 0 to max. Values
// at or above max get High; zero and below get Background.
func (p Palette) Color(v, max float64) color.Color {
	if v <= 0 || math.IsNaN(v) || max <= 0 {
		return p.Background
	}
	t := math.Min(v/max, 1)
	r, g, b := p.Low.BlendHcl(p.High, t).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// DiameterHeatmap colours every cell of a diameter map. Rows become image
// rows, so the result lines up with the mask it was measured from. A max of
// zero or less scales to the largest diameter in the map.
func DiameterHeatmap(m *mat.Dense, max float64, p Palette) *image.RGBA {
	if m == nil {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	rows, cols := m.Dims()
	if max <= 0 {
		max = mat.Max(m)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.Set(x, y, p.Color(m.At(y, x), max))
		}
	}
	return img
}
