package mask

import "image"

// Scratch is the arena for one scan: the visited bitmap shared across
// components, the current component's mask, and the flood stack.
//
// The component mask is full-size but only the bounding box touched by the
// last flood is ever dirty, so Reset clears that box and nothing else.
type Scratch struct {
	width, height int
	visited       []bool
	comp          *Mask
	bounds        image.Rectangle
	stack         []image.Point
}

// NewScratch allocates an arena for masks of the given size.
func NewScratch(width, height int) *Scratch {
	return &Scratch{
		width:   width,
		height:  height,
		visited: make([]bool, width*height),
		comp:    New(width, height),
	}
}

// Visited reports whether (x, y) has been claimed by a component.
func (s *Scratch) Visited(x, y int) bool {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return false
	}
	return s.visited[y*s.width+x]
}

// Bounds returns the bounding box of the last flooded component.
func (s *Scratch) Bounds() image.Rectangle {
	return s.bounds
}

// Reset clears the component mask inside the last component's bounding box.
// The visited bitmap is left alone.
func (s *Scratch) Reset() {
	for y := s.bounds.Min.Y; y < s.bounds.Max.Y; y++ {
		row := s.comp.pix[y*s.width : (y+1)*s.width]
		for x := s.bounds.Min.X; x < s.bounds.Max.X; x++ {
			row[x] = false
		}
	}
	s.bounds = image.Rectangle{}
}

// Component copies the current component into a standalone mask covering its
// bounding box grown by pad on every side. Component pixels are set. The
// returned point is the image coordinate of the mask's (0, 0).
func (s *Scratch) Component(pad int) (*Mask, image.Point) {
	return s.comp.Crop(s.bounds, pad)
}

var neighbours = [4]image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

// Flood collects the 4-connected background region containing seed.
//
// If the seed is out of bounds, foreground, or already visited it returns nil
// and touches nothing. Otherwise the previous component is cleared from the
// scratch mask, every reached pixel is marked visited and written into the
// scratch mask, and the pixel set is returned. Its length is the area.
func Flood(m *Mask, s *Scratch, seed image.Point) []image.Point {
	if !m.In(seed.X, seed.Y) || m.Foreground(seed.X, seed.Y) || s.Visited(seed.X, seed.Y) {
		return nil
	}

	s.Reset()
	s.bounds = image.Rectangle{Min: seed, Max: seed.Add(image.Point{X: 1, Y: 1})}

	var pixels []image.Point
	s.visited[seed.Y*s.width+seed.X] = true
	s.stack = append(s.stack[:0], seed)

	for len(s.stack) > 0 {
		p := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		pixels = append(pixels, p)
		s.comp.pix[p.Y*s.width+p.X] = true
		s.grow(p)

		for _, d := range neighbours {
			q := p.Add(d)
			if !m.In(q.X, q.Y) || m.Foreground(q.X, q.Y) {
				continue
			}
			i := q.Y*s.width + q.X
			if s.visited[i] {
				continue
			}
			s.visited[i] = true
			s.stack = append(s.stack, q)
		}
	}
	return pixels
}

func (s *Scratch) grow(p image.Point) {
	if p.X < s.bounds.Min.X {
		s.bounds.Min.X = p.X
	}
	if p.Y < s.bounds.Min.Y {
		s.bounds.Min.Y = p.Y
	}
	if p.X >= s.bounds.Max.X {
		s.bounds.Max.X = p.X + 1
	}
	if p.Y >= s.bounds.Max.Y {
		s.bounds.Max.Y = p.Y + 1
	}
}

// Component is one connected background region found by Scan.
type Component struct {
	Seed   image.Point
	Pixels []image.Point
	Bounds image.Rectangle
}

// Area is the pixel count.
func (c Component) Area() int {
	return len(c.Pixels)
}

// Scan floods every unvisited background pixel of m in raster order and
// calls fn once per component, while the component is still in the scratch
// mask. A nil scratch is allocated internally. A non-nil error from fn stops
// the scan and is returned.
func Scan(m *Mask, s *Scratch, fn func(*Scratch, Component) error) error {
	if s == nil {
		s = NewScratch(m.Width, m.Height)
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			seed := image.Point{X: x, Y: y}
			pixels := Flood(m, s, seed)
			if len(pixels) == 0 {
				continue
			}
			if err := fn(s, Component{Seed: seed, Pixels: pixels, Bounds: s.Bounds()}); err != nil {
				return err
			}
		}
	}
	return nil
}
