// Package scalebar calibrates a micrograph from the scale bar burnt into it.
//
// A scale bar is a solid horizontal stripe with a label such as "500 nm"
// printed next to it. FindBar locates the stripe as the longest run of
// bright (or dark) pixels in a search region, a Reader turns the pixels
// around it into text, and ParseLabel reads the physical length. Together
// they give the pixels-per-micrometre value the pipelines use to report
// diameters in nanometres.
//
// Text recognition uses Tesseract through gosseract when the binary is built
// with -tags tesseract. Other builds get a reader that always fails, and
// callers fall back to a configured calibration.
package scalebar

import (
	"fmt"
	"image"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// DefaultMinLength is the shortest run accepted as a bar, in pixels.
const DefaultMinLength = 20

// Options controls bar detection.
type Options struct {
	// Region limits the search. The zero rectangle means the whole image.
	Region image.Rectangle

	// Level is the luminance threshold separating bar from backdrop.
	Level uint8

	// Dark looks for a dark bar on a light backdrop.
	Dark bool

	// MinLength rejects shorter runs; zero means DefaultMinLength.
	MinLength int
}

// Bar is a detected scale bar in image coordinates.
type Bar struct {
	Rect      image.Rectangle `json:"rect"`
	Length    int             `json:"length_px"`
	Thickness int             `json:"thickness_px"`
}

// run is the longest stretch of set pixels on one row.
type run struct {
	start, length int
}

// FindBar returns the longest horizontal bar in the search region. Rows
// directly above and below whose longest run matches it (start within one
// pixel, length within two) count toward its thickness.
func FindBar(img image.Image, opts Options) (Bar, error) {
	region := img.Bounds()
	if !opts.Region.Empty() {
		region = opts.Region.Intersect(region)
	}
	if region.Empty() {
		return Bar{}, apperrors.NewInvalidInput("scale bar search region is empty", nil)
	}
	level := opts.Level
	if level == 0 {
		level = 128
	}
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	m := mask.FromImage(imaging.Crop(img, region), level)
	if opts.Dark {
		m = m.Invert()
	}

	runs := make([]run, m.Height)
	bestY := -1
	for y := 0; y < m.Height; y++ {
		runs[y] = longestRun(m, y)
		if bestY < 0 || runs[y].length > runs[bestY].length {
			bestY = y
		}
	}
	best := runs[bestY]
	if best.length < minLength {
		return Bar{}, apperrors.NewInvalidInput(
			fmt.Sprintf("no scale bar of at least %d px found (longest run %d px)", minLength, best.length), nil)
	}

	matches := func(r run) bool {
		return abs(r.start-best.start) <= 1 && abs(r.length-best.length) <= 2
	}
	top, bottom := bestY, bestY
	for top > 0 && matches(runs[top-1]) {
		top--
	}
	for bottom < m.Height-1 && matches(runs[bottom+1]) {
		bottom++
	}

	rect := image.Rect(best.start, top, best.start+best.length, bottom+1).Add(region.Min)
	return Bar{Rect: rect, Length: best.length, Thickness: bottom - top + 1}, nil
}

func longestRun(m *mask.Mask, y int) run {
	var best run
	for x := 0; x < m.Width; {
		if !m.Foreground(x, y) {
			x++
			continue
		}
		start := x
		for x < m.Width && m.Foreground(x, y) {
			x++
		}
		if x-start > best.length {
			best = run{start: start, length: x - start}
		}
	}
	return best
}

// LabelRegion is where the label of bar is searched: the bar widened by half
// its length on both sides and by a band above and below, clipped to bounds.
func LabelRegion(bar Bar, bounds image.Rectangle) image.Rectangle {
	band := 3 * bar.Thickness
	if band < 40 {
		band = 40
	}
	r := image.Rect(
		bar.Rect.Min.X-bar.Length/2, bar.Rect.Min.Y-band,
		bar.Rect.Max.X+bar.Length/2, bar.Rect.Max.Y+band,
	)
	return r.Intersect(bounds)
}

// Label is a parsed scale bar label.
type Label struct {
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Nanometres float64 `json:"nanometres"`
}

var labelPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(nm|[µμu]m|mm|microns?)\b`)

// ParseLabel finds the first "<number> <unit>" in text. Units nm, µm (also
// written μm, um or micron) and mm are understood; a decimal comma is
// accepted.
func ParseLabel(text string) (Label, error) {
	match := labelPattern.FindStringSubmatch(text)
	if match == nil {
		return Label{}, apperrors.NewInvalidInput(fmt.Sprintf("no length label in %q", strings.TrimSpace(text)), nil)
	}
	value, err := strconv.ParseFloat(strings.Replace(match[1], ",", ".", 1), 64)
	if err != nil || value <= 0 {
		return Label{}, apperrors.NewInvalidInput(fmt.Sprintf("bad length %q", match[1]), err)
	}

	unit := strings.ToLower(match[2])
	var factor float64
	switch {
	case unit == "nm":
		unit, factor = "nm", 1
	case unit == "mm":
		unit, factor = "mm", 1e6
	default:
		unit, factor = "µm", 1e3
	}
	return Label{Value: value, Unit: unit, Nanometres: value * factor}, nil
}

// Calibration is the result of reading a scale bar.
type Calibration struct {
	Bar                Bar     `json:"bar"`
	Label              Label   `json:"label"`
	Text               string  `json:"text,omitempty"`
	PixelsPerMicron    float64 `json:"pixels_per_micron"`
	NanometresPerPixel float64 `json:"nm_per_pixel"`
}

// Calibrate combines a bar and its label.
func Calibrate(bar Bar, label Label) (Calibration, error) {
	if bar.Length <= 0 || label.Nanometres <= 0 {
		return Calibration{}, apperrors.NewDegenerateMeasurement(
			fmt.Sprintf("scale bar %d px for %g nm", bar.Length, label.Nanometres))
	}
	nmPerPx := label.Nanometres / float64(bar.Length)
	return Calibration{
		Bar:                bar,
		Label:              label,
		PixelsPerMicron:    1000 / nmPerPx,
		NanometresPerPixel: nmPerPx,
	}, nil
}

// Reader recognizes the text in an image.
type Reader interface {
	ReadText(img image.Image) (string, error)
}

// Detect finds the bar, reads the text around it and calibrates. The label
// region is scaled up before recognition when the bar is short, since
// Tesseract does poorly on glyphs under about twenty pixels tall.
func Detect(img image.Image, reader Reader, opts Options) (*Calibration, error) {
	bar, err := FindBar(img, opts)
	if err != nil {
		return nil, err
	}

	region := LabelRegion(bar, img.Bounds())
	crop := imaging.Crop(img, region)
	if scale := labelScale(bar); scale > 1 {
		crop = imaging.Resize(crop, crop.Bounds().Dx()*scale, crop.Bounds().Dy()*scale, imaging.Lanczos)
	}

	text, err := reader.ReadText(crop)
	if err != nil {
		return nil, fmt.Errorf("failed to read scale bar label: %w", err)
	}
	label, err := ParseLabel(text)
	if err != nil {
		return nil, err
	}
	cal, err := Calibrate(bar, label)
	if err != nil {
		return nil, err
	}
	cal.Text = strings.TrimSpace(text)
	return &cal, nil
}

func labelScale(bar Bar) int {
	if bar.Length >= 200 {
		return 1
	}
	return int(math.Ceil(200 / float64(bar.Length)))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
