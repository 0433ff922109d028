//go:build !gocv

package contour

import (
	"image"

	"github.com/ironsheep/wire-analysis/internal/mask"
)

// Backend names the boundary tracer compiled in.
const Backend = "lattice"

// Lattice directions, in clockwise order on screen.
const (
	east = iota
	south
	west
	north
)

var step = [4]image.Point{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}

// tracer walks the (W+1) x (H+1) vertex lattice of a mask.
type tracer struct {
	m    *mask.Mask
	cols int
	used [4][]bool
}

// hasEdge reports whether a boundary edge leaves vertex v in direction d.
// Vertex (x, y) is the top-left corner of pixel (x, y).
func (t *tracer) hasEdge(v image.Point, d int) bool {
	set := t.m.Foreground
	switch d {
	case east: // top edge of pixel (x, y)
		return set(v.X, v.Y) && !set(v.X, v.Y-1)
	case south: // right edge of pixel (x-1, y)
		return set(v.X-1, v.Y) && !set(v.X, v.Y)
	case west: // bottom edge of pixel (x-1, y-1)
		return set(v.X-1, v.Y-1) && !set(v.X-1, v.Y)
	default: // left edge of pixel (x, y-1)
		return set(v.X, v.Y-1) && !set(v.X-1, v.Y-1)
	}
}

func (t *tracer) index(v image.Point) int {
	return v.Y*t.cols + v.X
}

// next picks the outgoing direction after arriving at v heading d. A right
// turn wins at a vertex shared by two diagonal pixels, which keeps the loop
// on one 4-connected piece.
func (t *tracer) next(v image.Point, d int) int {
	for _, turn := range [3]int{1, 0, 3} {
		nd := (d + turn) % 4
		if t.hasEdge(v, nd) {
			return nd
		}
	}
	return -1
}

// trace follows the loop that starts with the east edge at start and returns
// its corner vertices.
func (t *tracer) trace(start image.Point) []image.Point {
	type move struct {
		at  image.Point
		dir int
	}
	var path []move

	v, d := start, east
	for {
		t.used[d][t.index(v)] = true
		path = append(path, move{v, d})
		v = v.Add(step[d])
		d = t.next(v, d)
		if d < 0 || (v == start && d == east) {
			break
		}
	}

	corners := make([]image.Point, 0, len(path)/2+1)
	for i, mv := range path {
		prev := path[(i+len(path)-1)%len(path)]
		if mv.dir != prev.dir {
			corners = append(corners, mv.at)
		}
	}
	return corners
}

// Extract returns every boundary loop of m, outer and hole alike, as corner
// vertices with collinear points removed.
func Extract(m *mask.Mask) [][]image.Point {
	t := &tracer{m: m, cols: m.Width + 1}
	for d := range t.used {
		t.used[d] = make([]bool, (m.Width+1)*(m.Height+1))
	}

	var loops [][]image.Point
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := image.Point{X: x, Y: y}
			if !t.hasEdge(v, east) || t.used[east][t.index(v)] {
				continue
			}
			if loop := t.trace(v); len(loop) > 0 {
				loops = append(loops, loop)
			}
		}
	}
	return loops
}
