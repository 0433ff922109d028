package mask

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/segment"
)

// Mask is a binary image. Set pixels are foreground.
type Mask struct {
	Width  int
	Height int
	pix    []bool
}

// New returns an all-background mask of the given size.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, pix: make([]bool, width*height)}
}

// FromImage thresholds img at level: pixels with luminance >= level become
// foreground. The mask origin is the image's top-left corner.
func FromImage(img image.Image, level uint8) *Mask {
	gray := segment.Threshold(img, level)
	b := gray.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				m.pix[y*m.Width+x] = true
			}
		}
	}
	return m
}

// Bounds returns the mask rectangle anchored at the origin.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// In reports whether (x, y) lies inside the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// Foreground reports whether (x, y) is set. Out-of-bounds reads are background.
func (m *Mask) Foreground(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.pix[y*m.Width+x]
}

// Set writes the pixel at (x, y). Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if m.In(x, y) {
		m.pix[y*m.Width+x] = v
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.pix {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, pix: make([]bool, len(m.pix))}
	copy(out.pix, m.pix)
	return out
}

// Invert returns a new mask with foreground and background swapped.
func (m *Mask) Invert() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, pix: make([]bool, len(m.pix))}
	for i, v := range m.pix {
		out.pix[i] = !v
	}
	return out
}

// Crop copies region r grown by pad on every side into a new mask and
// returns it with the image coordinate of its (0, 0). Parts of the region
// outside m read as background, so it may extend past the edges.
func (m *Mask) Crop(r image.Rectangle, pad int) (*Mask, image.Point) {
	if pad > 0 {
		r = r.Inset(-pad)
	}
	out := New(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if m.Foreground(r.Min.X+x, r.Min.Y+y) {
				out.pix[y*out.Width+x] = true
			}
		}
	}
	return out, r.Min
}

// Paste sets every foreground pixel of src in m, with src's (0, 0) placed at
// at. Background pixels of src leave m unchanged and pixels falling outside
// m are dropped.
func (m *Mask) Paste(src *Mask, at image.Point) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if src.pix[y*src.Width+x] {
				m.Set(at.X+x, at.Y+y, true)
			}
		}
	}
}

// Equal reports whether both masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.pix {
		if m.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// Image renders the mask as 8-bit gray, foreground white.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(m.Bounds())
	for i, v := range m.pix {
		if v {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// String summarizes the mask for log lines.
func (m *Mask) String() string {
	return fmt.Sprintf("mask %dx%d (%d set)", m.Width, m.Height, m.Count())
}
