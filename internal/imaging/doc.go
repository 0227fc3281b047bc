// Package imaging provides the image operations built around card detection:
// loading photos, masking and cropping to a detected contour, and rendering
// debug overlays.
//
// # Coordinate System
//
// Contours carry the coordinates of the image they were detected in:
//   - X increases rightward, Y increases downward
//   - Rectangles use inclusive Min and exclusive Max
//
// BlackoutOutsideContour keeps the bounds of its input. CropToContour and
// DrawCardOverlay return images anchored at (0, 0).
//
// # Masking
//
// FillContourMask rasterises a contour into an *image.Alpha: the boundary is
// drawn segment by segment, then each row is filled between edge crossings.
// BlackoutOutsideContour uses the mask to paint everything outside the card
// opaque black.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions allocate their
// outputs and never modify their inputs.
package imaging
