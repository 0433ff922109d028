// Package geom implements the small amount of planar geometry the feature
// pipelines need: polygons, convex hulls, minimum-area oriented rectangles,
// affine rotate/translate, and polygon/line intersection lengths.
//
// # Coordinate System
//
// Points use image coordinates: X increases rightward, Y increases downward.
// Rotations follow the usual mathematical sense of the formula
// (x cos a - y sin a, x sin a + y cos a), which appears clockwise on screen.
//
// # Contracts
//
// A Polygon is an ordered ring without a repeated closing vertex. Functions
// never mutate their inputs; transforms return new polygons. Degenerate input
// (fewer than three vertices, zero area) is reported by the callers that need
// a measurable shape, not by this package.
package geom
