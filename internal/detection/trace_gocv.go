//go:build gocv

package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GoCVTracer traces contours with OpenCV's findContours in two-level
// (RETR_CCOMP) mode without chain approximation.
//
// Only available when built with the gocv tag and OpenCV installed.
type GoCVTracer struct{}

func newGoCVTracer() (Tracer, error) {
	return GoCVTracer{}, nil
}

// Trace implements Tracer.
func (GoCVTracer) Trace(mask *image.Gray) (*Forest, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrInvalidInput)
	}
	bounds := mask.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty mask", ErrInvalidInput)
	}

	mat, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mask: %w", err)
	}
	defer mat.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	contours := gocv.FindContoursWithParams(mat, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxNone)
	defer contours.Close()

	n := contours.Size()
	forest := &Forest{
		Contours:  make([]Contour, n),
		Hierarchy: make([]Hierarchy, n),
	}
	for i := 0; i < n; i++ {
		pts := contours.At(i).ToPoints()
		c := make(Contour, len(pts))
		for k, p := range pts {
			c[k] = p.Add(bounds.Min)
		}
		forest.Contours[i] = c

		v := hierarchy.GetVeciAt(0, i)
		forest.Hierarchy[i] = Hierarchy{
			Next:       int(v[0]),
			Previous:   int(v[1]),
			FirstChild: int(v[2]),
			Parent:     int(v[3]),
		}
	}

	return forest, nil
}
