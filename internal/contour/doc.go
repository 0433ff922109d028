// Package contour traces the boundaries of a refined component mask and picks
// the loop a pipeline measures.
//
// Boundaries follow pixel edges (crack boundaries), so a w x h block of set
// pixels yields a w x h rectangle and polygon area equals pixel count for
// hole-free shapes. Each loop keeps set pixels on its right-hand side in
// image coordinates: outer boundaries run clockwise on screen and hole
// boundaries run counter-clockwise. Each loop starts at the west end of its
// first top edge in raster order, and loops are ordered by that start.
//
// The default build traces the vertex lattice directly. Building with the
// gocv tag hands tracing to OpenCV's FindContours on a lattice mask.
package contour
