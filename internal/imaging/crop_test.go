package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/card-scanner/internal/detection"
)

var (
	tableColor = color.RGBA{25, 25, 25, 255}
	cardColor  = color.RGBA{220, 210, 190, 255}
)

// createCardImage creates a dark image with a bright card filling card
func createCardImage(width, height int, card image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (image.Point{X: x, Y: y}).In(card) {
				img.Set(x, y, cardColor)
			} else {
				img.Set(x, y, tableColor)
			}
		}
	}
	return img
}

func detectCard(t *testing.T, img image.Image) detection.Contour {
	t.Helper()
	contour, err := detection.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	return contour
}

func TestCropToContour(t *testing.T) {
	card := image.Rect(90, 151, 535, 754)
	img := createCardImage(640, 900, card)
	contour := detectCard(t, img)

	cropped, err := CropToContour(img, contour)
	if err != nil {
		t.Fatalf("CropToContour failed: %v", err)
	}

	bounds := cropped.Bounds()
	if bounds.Dx() != card.Dx() || bounds.Dy() != card.Dy() {
		t.Errorf("dimensions: got %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), card.Dx(), card.Dy())
	}
	if bounds.Min != (image.Point{}) {
		t.Errorf("crop should start at the origin, got %v", bounds.Min)
	}

	// Every pixel of the crop belongs to the card.
	for _, p := range []image.Point{{0, 0}, {bounds.Dx() - 1, 0}, {0, bounds.Dy() - 1}, {bounds.Dx() - 1, bounds.Dy() - 1}} {
		r, g, b, _ := cropped.At(p.X, p.Y).RGBA()
		if uint8(r>>8) != cardColor.R || uint8(g>>8) != cardColor.G || uint8(b>>8) != cardColor.B {
			t.Errorf("pixel %v: got (%d,%d,%d), want card colour", p, r>>8, g>>8, b>>8)
		}
	}
}

func TestCropToContour_NeverLargerThanImage(t *testing.T) {
	img := createCardImage(100, 80, image.Rect(0, 0, 100, 80))
	contour := detection.Contour{{-20, -10}, {150, -10}, {150, 120}, {-20, 120}}

	cropped, err := CropToContour(img, contour)
	if err != nil {
		t.Fatalf("CropToContour failed: %v", err)
	}
	if got := cropped.Bounds().Size(); got != (image.Point{X: 100, Y: 80}) {
		t.Errorf("size: got %v, want (100,80)", got)
	}
}

func TestCropToContour_TouchesEdge(t *testing.T) {
	img := createCardImage(60, 60, image.Rect(0, 10, 40, 60))
	contour := detectCard(t, img)

	cropped, err := CropToContour(img, contour)
	if err != nil {
		t.Fatalf("CropToContour failed: %v", err)
	}
	if got := cropped.Bounds().Size(); got != (image.Point{X: 40, Y: 50}) {
		t.Errorf("size: got %v, want (40,50)", got)
	}
}

func TestCropToContour_InvalidBounds(t *testing.T) {
	img := createCardImage(50, 50, image.Rect(10, 10, 20, 20))

	tests := []struct {
		name    string
		contour detection.Contour
	}{
		{"empty contour", nil},
		{"outside image", detection.Contour{{100, 100}, {120, 100}, {120, 120}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CropToContour(img, tt.contour)
			if !errors.Is(err, detection.ErrInvalidBounds) {
				t.Errorf("error: got %v, want ErrInvalidBounds", err)
			}
		})
	}
}

func TestCropToContour_NilImage(t *testing.T) {
	_, err := CropToContour(nil, detection.Contour{{0, 0}})
	if !errors.Is(err, detection.ErrInvalidInput) {
		t.Errorf("error: got %v, want ErrInvalidInput", err)
	}
}

func TestScale(t *testing.T) {
	img := createCardImage(100, 60, image.Rect(0, 0, 100, 60))

	tests := []struct {
		name   string
		factor float64
		want   image.Point
	}{
		{"up", 2.0, image.Point{X: 200, Y: 120}},
		{"down", 0.5, image.Point{X: 50, Y: 30}},
		{"identity", 1.0, image.Point{X: 100, Y: 60}},
		{"ignored", -1, image.Point{X: 100, Y: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scale(img, tt.factor).Bounds().Size(); got != tt.want {
				t.Errorf("size: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodePNG(t *testing.T) {
	img := createCardImage(30, 20, image.Rect(5, 5, 25, 15))

	result, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if result.Width != 30 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 30x20", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if decoded.Bounds().Size() != img.Bounds().Size() {
		t.Errorf("decoded size: got %v, want %v", decoded.Bounds().Size(), img.Bounds().Size())
	}
}
