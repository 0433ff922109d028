// Package mask holds the binary mask type and the connected-component scanner.
//
// A Mask is a width x height grid of booleans. A set pixel is foreground and
// an unset pixel is background. Features (particles and wires) are the
// background regions, matching a segmented micrograph where features are
// dark on a bright matrix.
//
// # Scanning
//
// Scan walks seeds in raster order (row-major, top-left first) and floods each
// unvisited background pixel into a 4-connected component. The visited bitmap
// and the per-component scratch mask live in a Scratch arena that the caller
// owns and passes explicitly. After a full scan every background pixel belongs
// to exactly one component and no foreground pixel belongs to any.
//
// Flooding is iterative with an explicit stack, so component size is bounded
// by memory rather than goroutine stack depth.
package mask
