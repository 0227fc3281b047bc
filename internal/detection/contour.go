package detection

import (
	"image"
	"math"
)

// Contour is an ordered, implicitly closed sequence of boundary points traced
// from a binary mask. Points are in the coordinate space of the source image.
type Contour []image.Point

// Hierarchy records the position of one contour within its Forest.
//
// Every field is an index into Forest.Contours, or -1 when the relation does
// not exist. The layout mirrors the classic four-element hierarchy vector:
// next sibling, previous sibling, first child, parent.
type Hierarchy struct {
	Next       int `json:"next"`
	Previous   int `json:"previous"`
	FirstChild int `json:"first_child"`
	Parent     int `json:"parent"`
}

// noRelation marks a missing hierarchy link.
const noRelation = -1

// Forest is the result of one tracing pass over a mask.
//
// Contours and Hierarchy are parallel slices: Hierarchy[i] describes
// Contours[i]. A Forest is produced fresh per call and never shared.
type Forest struct {
	Contours  []Contour
	Hierarchy []Hierarchy
}

// Len returns the number of contours in the forest.
func (f *Forest) Len() int {
	return len(f.Contours)
}

// Children returns the indices of the direct children of contour i,
// following the sibling chain from FirstChild.
func (f *Forest) Children(i int) []int {
	var children []int
	for c := f.Hierarchy[i].FirstChild; c != noRelation; c = f.Hierarchy[c].Next {
		children = append(children, c)
	}
	return children
}

// ContourArea returns the area enclosed by the contour using the shoelace
// formula. The result is always non-negative; the orientation of the contour
// does not matter. Contours with fewer than three points have zero area.
func ContourArea(c Contour) float64 {
	n := len(c)
	if n < 3 {
		return 0
	}

	var sum int64
	for i := 0; i < n; i++ {
		p := c[i]
		q := c[(i+1)%n]
		sum += int64(p.X)*int64(q.Y) - int64(q.X)*int64(p.Y)
	}
	return math.Abs(float64(sum)) / 2
}

// BoundingRect returns the smallest axis-aligned rectangle that contains all
// points of the contour. Max is exclusive, so a single point yields a 1x1
// rectangle and an empty contour yields the zero rectangle.
func BoundingRect(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}

	minX, minY := c[0].X, c[0].Y
	maxX, maxY := c[0].X, c[0].Y
	for _, p := range c[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Corners describes the four corners of a contour's bounding rectangle.
type Corners struct {
	TopLeft     image.Point `json:"top_left"`
	TopRight    image.Point `json:"top_right"`
	BottomLeft  image.Point `json:"bottom_left"`
	BottomRight image.Point `json:"bottom_right"`
}

// CornersOf returns the corners of the contour's bounding rectangle, using the
// exclusive right and bottom edges.
func CornersOf(c Contour) Corners {
	r := BoundingRect(c)
	return Corners{
		TopLeft:     r.Min,
		TopRight:    image.Pt(r.Max.X, r.Min.Y),
		BottomLeft:  image.Pt(r.Min.X, r.Max.Y),
		BottomRight: r.Max,
	}
}
