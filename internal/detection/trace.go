package detection

import (
	"fmt"
	"image"
	"strings"
)

// Tracer turns a binary mask into a forest of closed boundaries.
//
// Implementations must treat every non-zero mask pixel as foreground, keep
// every boundary pixel (no segment simplification) and organise the result
// in two levels: outer boundaries at the top level, hole boundaries as the
// children of the outer boundary that encloses them.
type Tracer interface {
	Trace(mask *image.Gray) (*Forest, error)
}

// Tracer names accepted by NewTracer.
const (
	TracerSuzuki = "suzuki"
	TracerGoCV   = "gocv"
)

// NewTracer returns the tracer registered under name. An empty name selects
// the pure Go border follower.
func NewTracer(name string) (Tracer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TracerSuzuki:
		return BorderFollower{}, nil
	case TracerGoCV:
		return newGoCVTracer()
	default:
		return nil, fmt.Errorf("unknown contour tracer: %q", name)
	}
}

// BorderFollower traces contours with the Suzuki–Abe border following
// algorithm ("Topological Structural Analysis of Digitized Binary Images by
// Border Following", 1985).
//
// The mask is treated as if surrounded by a one pixel background frame, so
// foreground touching the image edge is traced along the edge itself.
//
// # Ordering
//
// Borders are discovered in raster order. Siblings are linked newest first:
// the first top-level border found (typically the one hugging the image
// frame) ends up last in the top-level chain, with no Next sibling. Contours
// are laid out in the Forest in pre-order: each top-level border followed by
// its holes.
type BorderFollower struct{}

// chain directions around a pixel, counterclockwise as displayed:
// E, NE, N, NW, W, SW, S, SE.
var chainDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
var chainDY = [8]int{0, -1, -1, -1, 0, 1, 1, 1}

const (
	dirEast = 0
	dirWest = 4
)

// border is one traced border before it is placed in the two-level forest.
type border struct {
	hole   bool
	parent int // label of the enclosing border; frameLabel for none
	points Contour
}

const frameLabel = 1

// Trace implements Tracer.
func (BorderFollower) Trace(mask *image.Gray) (*Forest, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrInvalidInput)
	}
	bounds := mask.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty mask", ErrInvalidInput)
	}

	// Padded label grid. 0 = background, 1 = unvisited foreground, other
	// values are border labels (negative when the east neighbour is background).
	stride := width + 2
	labels := make([]int32, stride*(height+2))
	for y := 0; y < height; y++ {
		off := mask.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := mask.Pix[off : off+width]
		for x, v := range row {
			if v != 0 {
				labels[(y+1)*stride+x+1] = 1
			}
		}
	}

	var offsets [8]int
	for d := 0; d < 8; d++ {
		offsets[d] = chainDY[d]*stride + chainDX[d]
	}

	toPoint := func(idx int) image.Point {
		return image.Pt(idx%stride-1+bounds.Min.X, idx/stride-1+bounds.Min.Y)
	}

	// borders[label] describes the border with that label. Labels 0 and 1
	// are placeholders; the frame counts as a hole with no parent.
	borders := []border{{}, {hole: true, parent: 0}}
	nbd := int32(frameLabel)

	for i := 1; i <= height; i++ {
		lnbd := int32(frameLabel)
		for j := 1; j <= width; j++ {
			idx := i*stride + j
			v := labels[idx]
			if v == 0 {
				continue
			}

			var hole bool
			var from int
			switch {
			case v == 1 && labels[idx-1] == 0:
				from = dirWest
			case v >= 1 && labels[idx+1] == 0:
				hole = true
				from = dirEast
				if v > 1 {
					lnbd = v
				}
			default:
				if v != 1 {
					lnbd = abs32(v)
				}
				continue
			}

			nbd++
			last := borders[lnbd]
			parent := int(lnbd)
			if hole == last.hole {
				parent = last.parent
			}

			points := followBorder(labels, offsets, idx, from, nbd, toPoint)
			borders = append(borders, border{hole: hole, parent: parent, points: points})

			if labels[idx] != 1 {
				lnbd = abs32(labels[idx])
			}
		}
	}

	return buildForest(borders[2:]), nil
}

// followBorder walks the border starting at start (steps 3.1 to 3.5 of the
// algorithm), relabelling its pixels with nbd and returning the visited
// points in order.
func followBorder(labels []int32, offsets [8]int, start, from int, nbd int32, toPoint func(int) image.Point) Contour {
	first := -1
	for k := 0; k < 8; k++ {
		d := (from - k + 8) % 8
		if labels[start+offsets[d]] != 0 {
			first = d
			break
		}
	}
	if first < 0 {
		labels[start] = -nbd
		return Contour{toPoint(start)}
	}

	var points Contour
	i1 := start + offsets[first]
	i3 := start
	back := first // direction from i3 to the previous pixel
	for {
		eastClear := false
		next, nextDir := -1, 0
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			n := i3 + offsets[d]
			if labels[n] != 0 {
				next, nextDir = n, d
				break
			}
			if d == dirEast {
				eastClear = true
			}
		}

		points = append(points, toPoint(i3))
		if eastClear {
			labels[i3] = -nbd
		} else if labels[i3] == 1 {
			labels[i3] = nbd
		}

		if next == start && i3 == i1 {
			return points
		}
		i3 = next
		back = (nextDir + 4) % 8
	}
}

// buildForest arranges traced borders (index k has label k+2) into the
// two-level hierarchy: outer borders on top, holes beneath their outer border.
func buildForest(borders []border) *Forest {
	n := len(borders)
	forest := &Forest{
		Contours:  make([]Contour, 0, n),
		Hierarchy: make([]Hierarchy, 0, n),
	}
	if n == 0 {
		return forest
	}

	var tops []int
	holes := make([][]int, n)
	for k := n - 1; k >= 0; k-- {
		b := borders[k]
		owner := b.parent - 2
		if !b.hole || owner < 0 || borders[owner].hole {
			tops = append(tops, k)
			continue
		}
		holes[owner] = append(holes[owner], k)
	}

	pos := make([]int, n)
	order := make([]int, 0, n)
	for _, t := range tops {
		pos[t] = len(order)
		order = append(order, t)
		for _, h := range holes[t] {
			pos[h] = len(order)
			order = append(order, h)
		}
	}

	for _, k := range order {
		forest.Contours = append(forest.Contours, borders[k].points)
		forest.Hierarchy = append(forest.Hierarchy, Hierarchy{
			Next: noRelation, Previous: noRelation, FirstChild: noRelation, Parent: noRelation,
		})
	}

	link := func(siblings []int, parent int) {
		for s, k := range siblings {
			h := &forest.Hierarchy[pos[k]]
			h.Parent = parent
			if s > 0 {
				h.Previous = pos[siblings[s-1]]
			}
			if s < len(siblings)-1 {
				h.Next = pos[siblings[s+1]]
			}
		}
	}

	link(tops, noRelation)
	for _, t := range tops {
		if len(holes[t]) == 0 {
			continue
		}
		forest.Hierarchy[pos[t]].FirstChild = pos[holes[t][0]]
		link(holes[t], pos[t])
	}

	return forest
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
