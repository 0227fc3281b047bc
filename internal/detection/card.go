package detection

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
)

var (
	// ErrNotFound is returned when no candidate contour remains after the
	// image frame contour has been excluded.
	ErrNotFound = errors.New("card contour not found")

	// ErrInvalidBounds is returned when a geometric result is degenerate
	// (zero width or height) where a non-degenerate one is required.
	ErrInvalidBounds = errors.New("invalid bounds")

	// ErrInvalidInput is returned for nil or empty images, single-channel
	// images and unusable options.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultThreshold is the intensity (0-255) at or above which a grayscale
// pixel counts as part of the card.
const DefaultThreshold = 70

// Options configures card edge detection.
type Options struct {
	// Threshold separates background (below) from foreground (at or above).
	Threshold uint8

	// Weights converts colour pixels to intensity before thresholding.
	// The zero value selects BT601.
	Weights Luminance

	// Tracer extracts the contour forest from the mask. Nil selects the
	// pure Go border follower.
	Tracer Tracer

	// RequireFrameSpan additionally requires the frame contour's bounding
	// rectangle to cover the whole image before it is excluded.
	RequireFrameSpan bool

	// Logger receives debug diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the settings the detector was tuned with: threshold
// 70, BT.601 weights and the border following tracer.
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		Weights:   BT601,
		Tracer:    BorderFollower{},
	}
}

// Result describes a successful detection.
type Result struct {
	// Contour is the boundary chosen as the card edge.
	Contour Contour `json:"-"`

	// Area is the enclosed area of Contour in square pixels.
	Area float64 `json:"area"`

	// Bounds is the bounding rectangle of Contour (exclusive Max).
	Bounds image.Rectangle `json:"-"`

	// Corners are the corners of Bounds.
	Corners Corners `json:"corners"`

	// PointCount is the number of points in Contour.
	PointCount int `json:"point_count"`

	// ContourCount is the number of contours traced from the mask.
	ContourCount int `json:"contour_count"`

	// FrameExcluded reports whether an image frame contour was found and
	// removed from the candidates.
	FrameExcluded bool `json:"frame_excluded"`
}

// Detect runs DetectCardEdge with DefaultOptions.
func Detect(img image.Image) (Contour, error) {
	return DetectCardEdge(img, DefaultOptions())
}

// DetectCardEdge locates the contour most likely to be the outer edge of a
// card photographed against a darker background.
//
// See Analyze for the algorithm and error conditions.
func DetectCardEdge(img image.Image, opts Options) (Contour, error) {
	res, err := Analyze(img, opts)
	if err != nil {
		return nil, err
	}
	return res.Contour, nil
}

// Analyze runs the detection pipeline and reports the chosen contour along
// with diagnostics.
//
// # Algorithm
//
//  1. Grayscale conversion with opts.Weights
//  2. Global threshold: pixels below opts.Threshold become background
//  3. Two-level contour tracing keeping every boundary pixel
//  4. Frame exclusion: the first contour with no parent, no next sibling and
//     at least one child traces the image frame and is dropped
//  5. The remaining contour with the largest enclosed area wins; ties go to
//     the first in forest order
//
// # Errors
//
//   - ErrInvalidInput: nil or empty image, single-channel colour model, bad
//     weights
//   - ErrNotFound: nothing left to choose from, including images that are
//     entirely below or entirely above the threshold
func Analyze(img image.Image, opts Options) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if isSingleChannel(img.ColorModel()) {
		return nil, fmt.Errorf("%w: expected a colour image", ErrInvalidInput)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = BorderFollower{}
	}

	weights := opts.Weights
	if weights == (Luminance{}) {
		weights = BT601
	}

	gray, err := Grayscale(img, weights)
	if err != nil {
		return nil, err
	}
	mask := Binarize(gray, opts.Threshold)
	if !hasBackground(mask) {
		return nil, fmt.Errorf("%w: no pixel below threshold %d", ErrNotFound, opts.Threshold)
	}

	forest, err := tracer.Trace(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to trace contours: %w", err)
	}

	frame := FrameContour(forest)
	if frame >= 0 && opts.RequireFrameSpan && BoundingRect(forest.Contours[frame]) != bounds {
		frame = -1
	}
	if frame < 0 {
		logger.Debug("no frame contour found", "contours", forest.Len())
	} else {
		logger.Debug("frame contour excluded", "index", frame, "children", len(forest.Children(frame)))
	}

	best := -1
	bestArea := 0.0
	for i, c := range forest.Contours {
		if i == frame {
			continue
		}
		area := ContourArea(c)
		if best < 0 || area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: %d contours traced", ErrNotFound, forest.Len())
	}

	card := forest.Contours[best]
	logger.Debug("card contour selected",
		"index", best,
		"area", bestArea,
		"points", len(card),
		"contours", forest.Len(),
		"frame_excluded", frame >= 0)

	return &Result{
		Contour:       card,
		Area:          bestArea,
		Bounds:        BoundingRect(card),
		Corners:       CornersOf(card),
		PointCount:    len(card),
		ContourCount:  forest.Len(),
		FrameExcluded: frame >= 0,
	}, nil
}

// FrameContour returns the index of the contour that traces the image frame:
// the first contour with no parent, no next sibling and at least one child.
// It returns -1 when no contour matches.
func FrameContour(forest *Forest) int {
	for i, h := range forest.Hierarchy {
		if h.Parent == noRelation && h.Next == noRelation && h.FirstChild != noRelation {
			return i
		}
	}
	return -1
}

func hasBackground(mask *image.Gray) bool {
	bounds := mask.Bounds()
	for y := 0; y < bounds.Dy(); y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+bounds.Dx()]
		for _, v := range row {
			if v == 0 {
				return true
			}
		}
	}
	return false
}
