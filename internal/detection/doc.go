// Package detection locates the outer edge of a playing card in a photograph.
//
// The detector is a pure function pipeline over image buffers:
//
//  1. Grayscale: weighted sum of the colour channels (BT.601 by default)
//  2. Binarize: a fixed global threshold (70 by default) separates the card
//     from a darker background
//  3. Trace: border following over the mask produces a two-level forest of
//     outer and hole boundaries
//  4. Select: the image frame contour is excluded and the contour with the
//     largest enclosed area is returned
//
// # Coordinate System
//
// Contour points use the coordinates of the source image:
//   - Origin at the image's Bounds().Min (usually (0, 0), top-left)
//   - X increases rightward, Y increases downward
//   - Bounding rectangles use inclusive Min and exclusive Max
//
// # Contour Hierarchy
//
// Each traced contour carries next/previous sibling, first child and parent
// links. Outer boundaries of foreground regions are at the top level; the
// boundaries of holes inside them are their children. A foreground region
// inside a hole starts a new top-level entry.
//
// When the background is brighter than the threshold (a card on a white
// table), the whole image edge becomes one outer boundary enclosing the card.
// That contour has no parent, no next sibling and at least one child; it is
// treated as an artifact and never returned.
//
// # Tracers
//
// BorderFollower is a pure Go implementation of Suzuki–Abe border following
// and is always available. Building with the gocv tag adds a tracer backed
// by OpenCV's findContours; select it with NewTracer("gocv").
//
// # Limitations
//
// The threshold is global, so the method relies on the card being brighter
// than its surroundings under even lighting. Multiple disjoint bright regions
// with no enclosing border skip the frame exclusion entirely.
//
// # Thread Safety
//
// Every function allocates its own intermediates and keeps no state between
// calls. Detect different images concurrently by calling from separate
// goroutines.
package detection
