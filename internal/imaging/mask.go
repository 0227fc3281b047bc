package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/card-scanner/internal/detection"
)

// FillContourMask rasterises a closed contour into an alpha mask covering
// bounds. Pixels on the contour and pixels enclosed by it are opaque (255);
// everything else is transparent (0).
//
// The contour is closed implicitly from its last point back to the first.
// Points outside bounds are allowed: the polygon is clipped to the mask.
//
// # Algorithm
//
//  1. Every edge between consecutive points is drawn with Bresenham's line
//     algorithm, so the boundary itself is always included
//  2. Each row is filled between pairs of edge crossings (even-odd rule),
//     sampled at pixel centres
func FillContourMask(bounds image.Rectangle, contour detection.Contour) *image.Alpha {
	mask := image.NewAlpha(bounds)
	n := len(contour)
	if n == 0 || bounds.Empty() {
		return mask
	}

	for i := 0; i < n; i++ {
		drawLine(mask, contour[i], contour[(i+1)%n])
	}

	if n < 3 {
		return mask
	}

	rows := detection.BoundingRect(contour).Intersect(bounds)
	var xs []float64
	for y := rows.Min.Y; y < rows.Max.Y; y++ {
		xs = xs[:0]
		fy := float64(y)
		for i := 0; i < n; i++ {
			p, q := contour[i], contour[(i+1)%n]
			if p.Y == q.Y {
				continue
			}
			// Half-open on Y so shared vertices are counted once.
			if (p.Y <= y && y < q.Y) || (q.Y <= y && y < p.Y) {
				t := (fy - float64(p.Y)) / float64(q.Y-p.Y)
				xs = append(xs, float64(p.X)+t*float64(q.X-p.X))
			}
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i]))
			x1 := int(math.Floor(xs[i+1]))
			if x0 < bounds.Min.X {
				x0 = bounds.Min.X
			}
			if x1 >= bounds.Max.X {
				x1 = bounds.Max.X - 1
			}
			for x := x0; x <= x1; x++ {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}

	return mask
}

// drawLine sets every mask pixel on the segment from a to b, skipping pixels
// outside the mask bounds.
func drawLine(mask *image.Alpha, a, b image.Point) {
	dx := absInt(b.X - a.X)
	dy := -absInt(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	bounds := mask.Bounds()
	err := dx + dy
	x, y := a.X, a.Y
	for {
		if (image.Point{X: x, Y: y}).In(bounds) {
			mask.SetAlpha(x, y, color.Alpha{A: 255})
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// BlackoutOutsideContour returns a copy of img in which every pixel outside
// the contour is opaque black. Pixels inside or on the contour keep their
// original colour. The result has the same bounds as img; img is not
// modified.
//
// Contour points outside the image are clipped rather than rejected.
//
// # Errors
//
//   - detection.ErrInvalidInput: img is nil or empty
//   - detection.ErrInvalidBounds: the contour has no points
func BlackoutOutsideContour(img image.Image, contour detection.Contour) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", detection.ErrInvalidInput)
	}
	if len(contour) == 0 {
		return nil, fmt.Errorf("%w: contour has no points", detection.ErrInvalidBounds)
	}

	bounds := img.Bounds()
	dst := imaging.Clone(img)
	// Clone anchors at the origin; shift back to the source coordinates.
	dst.Rect = bounds

	mask := FillContourMask(bounds, contour)
	for y := 0; y < bounds.Dy(); y++ {
		maskRow := mask.Pix[y*mask.Stride : y*mask.Stride+bounds.Dx()]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+bounds.Dx()*4]
		for x, a := range maskRow {
			if a != 0 {
				continue
			}
			px := dstRow[x*4 : x*4+4]
			px[0], px[1], px[2], px[3] = 0, 0, 0, 255
		}
	}

	return dst, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
