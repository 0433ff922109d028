// Package imaging reads segmented masks from disk and renders the images the
// tools hand back: component overlays and diameter heatmaps.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Polygon vertices from the
// contour extractor sit on pixel corners, so a vertex (x, y) is drawn on the
// pixel whose top-left corner it is.
//
// Diameter maps are gonum matrices indexed (row, column), which is (y, x).
//
// # Mask Polarity
//
// A loaded mask keeps the convention of package mask: foreground is the
// bright matrix and the features to be measured are background. Images whose
// features are drawn white (the residual "wires" mask, for instance) are
// loaded with featuresWhite set and inverted on the way in.
//
// # Formats
//
// PNG, JPEG and GIF come from the standard library. TIFF and BMP, the usual
// microscopy exports, are registered from golang.org/x/image. Output files are
// written with github.com/disintegration/imaging, which picks the encoder from
// the file extension.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Rendering functions allocate their
// own output and can run concurrently.
package imaging
