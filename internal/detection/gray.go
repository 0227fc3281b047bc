package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/clone"
)

// Luminance holds the per-channel weights used to collapse a colour pixel
// into one intensity value.
type Luminance struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// BT601 is the ITU-R BT.601 luma weighting (0.299, 0.587, 0.114).
var BT601 = Luminance{R: 0.299, G: 0.587, B: 0.114}

// Validate reports whether the weights can produce a usable grayscale image.
func (l Luminance) Validate() error {
	if l.R < 0 || l.G < 0 || l.B < 0 {
		return fmt.Errorf("%w: negative luminance weight %+v", ErrInvalidInput, l)
	}
	if l.R+l.G+l.B == 0 {
		return fmt.Errorf("%w: luminance weights sum to zero", ErrInvalidInput)
	}
	return nil
}

// grayShift is the fixed point precision of the conversion, chosen so that
// BT601 rounds to the integer coefficients 4899, 9617 and 1868.
const grayShift = 14

// Grayscale converts img to a single-channel image using the given weights.
//
// Each output pixel is round(wR*R + wG*G + wB*B) on 8-bit channels, computed
// in fixed point and clamped to 255. The input is never modified; the result
// has the same bounds as img.
func Grayscale(img image.Image, weights Luminance) (*image.Gray, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	src := clone.AsRGBA(img)
	bounds := src.Bounds()
	dst := image.NewGray(img.Bounds())

	wr := int(math.Round(weights.R * (1 << grayShift)))
	wg := int(math.Round(weights.G * (1 << grayShift)))
	wb := int(math.Round(weights.B * (1 << grayShift)))
	const half = 1 << (grayShift - 1)

	for y := 0; y < bounds.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+bounds.Dx()*4]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+bounds.Dx()]
		for x := range dstRow {
			p := srcRow[x*4 : x*4+3]
			v := (int(p[0])*wr + int(p[1])*wg + int(p[2])*wb + half) >> grayShift
			if v > 255 {
				v = 255
			}
			dstRow[x] = uint8(v)
		}
	}

	return dst, nil
}

// Binarize maps every pixel strictly below threshold to 0 (background) and
// every pixel at or above it to 255 (foreground).
func Binarize(gray *image.Gray, threshold uint8) *image.Gray {
	bounds := gray.Bounds()
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= threshold {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// isSingleChannel reports whether the colour model carries no colour
// information at all.
func isSingleChannel(m color.Model) bool {
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	return false
}
