package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/card-scanner/internal/detection"
)

// EncodedImage is an image rendered as base64 PNG for transport in a JSON
// result.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as PNG and wraps it in an EncodedImage.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	bounds := img.Bounds()
	return &EncodedImage{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropToContour copies the region of img spanned by the contour's bounding
// rectangle. There is no padding: a rectangle touching the image edge yields
// a crop touching the edge. The result starts at (0, 0).
//
// The rectangle is intersected with the image bounds first, so the crop is
// never larger than img. An empty intersection (including an empty contour)
// fails with detection.ErrInvalidBounds.
func CropToContour(img image.Image, contour detection.Contour) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", detection.ErrInvalidInput)
	}

	rect := detection.BoundingRect(contour).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("%w: crop rectangle %v is empty", detection.ErrInvalidBounds, rect)
	}

	return imaging.Crop(img, rect), nil
}

// Scale resizes img by factor with Lanczos resampling. A factor of 1, or
// one that is not positive, returns img unchanged.
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1.0 || factor <= 0 {
		return img
	}

	bounds := img.Bounds()
	width := int(float64(bounds.Dx()) * factor)
	height := int(float64(bounds.Dy()) * factor)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}
