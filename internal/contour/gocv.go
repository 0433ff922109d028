//go:build gocv

package contour

import (
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/ironsheep/wire-analysis/internal/mask"
)

// Backend names the boundary tracer compiled in.
const Backend = "gocv"

// Extract returns every boundary loop of m, outer and hole alike, as corner
// vertices with collinear points removed.
//
// OpenCV traces pixel centres, so tracing runs on a lattice mask at twice the
// resolution in which every pixel, crack edge and vertex of m has a cell of
// its own. Pixel-centre contours of the lattice mask, halved, are the crack
// boundaries of m. Pixels touching only at a corner share a lattice vertex
// and are traced as one loop.
func Extract(m *mask.Mask) [][]image.Point {
	lattice := latticeMat(m)
	defer lattice.Close()

	contours := gocv.FindContours(lattice, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	var loops [][]image.Point
	for i := 0; i < contours.Size(); i++ {
		loop := crackCorners(contours.At(i).ToPoints())
		if len(loop) < 4 {
			continue
		}
		loops = append(loops, orient(m, loop))
	}
	sort.SliceStable(loops, func(i, j int) bool {
		return rasterLess(loops[i][0], loops[j][0])
	})
	return loops
}

// latticeMat paints each set pixel (x, y) as the 3x3 block of lattice cells
// from (2x, 2y) to (2x+2, 2y+2). Even coordinates are vertices and edges.
func latticeMat(m *mask.Mask) gocv.Mat {
	mat := gocv.NewMatWithSize(2*m.Height+1, 2*m.Width+1, gocv.MatTypeCV8UC1)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Foreground(x, y) {
				continue
			}
			for dy := 0; dy < 3; dy++ {
				for dx := 0; dx < 3; dx++ {
					mat.SetUCharAt(2*y+dy, 2*x+dx, 255)
				}
			}
		}
	}
	return mat
}

// crackCorners turns a lattice contour into crack vertices. Only cells with
// both coordinates even are vertices. OpenCV steps diagonally past a concave
// corner, so each diagonal step is replaced by the vertex it skipped.
func crackCorners(chain []image.Point) []image.Point {
	var pts []image.Point
	vertex := func(p image.Point) {
		if p.X%2 == 0 && p.Y%2 == 0 {
			pts = append(pts, p.Div(2))
		}
	}

	for i, p := range chain {
		vertex(p)
		q := chain[(i+1)%len(chain)]
		d := q.Sub(p)
		if d.X == 0 || d.Y == 0 || abs(d.X) != abs(d.Y) {
			continue
		}
		step := image.Point{X: sign(d.X), Y: sign(d.Y)}
		for a := p; a != q; a = a.Add(step) {
			b := a.Add(step)
			vertex(image.Point{X: a.X, Y: b.Y})
			vertex(image.Point{X: b.X, Y: a.Y})
			if b != q {
				vertex(b)
			}
		}
	}
	return dropCollinear(pts)
}

// dropCollinear removes repeated vertices and vertices in the middle of a
// straight run, including across the ring's closing edge.
func dropCollinear(pts []image.Point) []image.Point {
	var out []image.Point
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		for len(out) >= 2 && collinear(out[len(out)-2], out[len(out)-1], p) {
			out = out[:len(out)-1]
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	for len(out) >= 3 && collinear(out[len(out)-2], out[len(out)-1], out[0]) {
		out = out[:len(out)-1]
	}
	for len(out) >= 3 && collinear(out[len(out)-1], out[0], out[1]) {
		out = out[1:]
	}
	return out
}

func collinear(a, b, c image.Point) bool {
	return (a.X == b.X && b.X == c.X) || (a.Y == b.Y && b.Y == c.Y)
}

// orient reverses the loop if its set pixels lie on the left and rotates it
// to start at the west end of its first top edge.
func orient(m *mask.Mask, loop []image.Point) []image.Point {
	if !setOnRight(m, loop[0], loop[1]) {
		for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
			loop[i], loop[j] = loop[j], loop[i]
		}
	}

	start := 0
	found := false
	for i, v := range loop {
		next := loop[(i+1)%len(loop)]
		if next.Y == v.Y && next.X > v.X && (!found || rasterLess(v, loop[start])) {
			start, found = i, true
		}
	}
	out := make([]image.Point, 0, len(loop))
	out = append(out, loop[start:]...)
	return append(out, loop[:start]...)
}

// setOnRight reports whether the pixel to the right of the first unit edge
// of a -> b is set.
func setOnRight(m *mask.Mask, a, b image.Point) bool {
	switch {
	case b.X > a.X:
		return m.Foreground(a.X, a.Y)
	case b.Y > a.Y:
		return m.Foreground(a.X-1, a.Y)
	case b.X < a.X:
		return m.Foreground(a.X-1, a.Y-1)
	default:
		return m.Foreground(a.X, a.Y-1)
	}
}

func rasterLess(a, b image.Point) bool {
	return a.Y < b.Y || (a.Y == b.Y && a.X < b.X)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
