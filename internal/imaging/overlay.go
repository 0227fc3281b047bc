package imaging

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"

	"github.com/ironsheep/card-scanner/internal/detection"
)

// DefaultCaption explains the overlay colours.
const DefaultCaption = "Red = Corners, Green = Contour"

// OverlayOptions controls DrawCardOverlay. Zero fields take the value from
// DefaultOverlayOptions.
type OverlayOptions struct {
	// ContourColor is the hex colour of the contour polyline ("#RRGGBB" or "#RGB").
	ContourColor string `json:"contour_color,omitempty"`

	// BoundsColor is the hex colour of the bounding rectangle.
	BoundsColor string `json:"bounds_color,omitempty"`

	// TextColor is the hex colour of the caption.
	TextColor string `json:"text_color,omitempty"`

	// LineWidth is the stroke width in pixels.
	LineWidth float64 `json:"line_width,omitempty"`

	// Caption is drawn near the top-left corner unless HideCaption is set.
	Caption     string `json:"caption,omitempty"`
	HideCaption bool   `json:"hide_caption,omitempty"`
}

// DefaultOverlayOptions returns a green contour, a red bounding rectangle and
// a black caption, stroked 10 pixels wide.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		ContourColor: "#00FF00",
		BoundsColor:  "#FF0000",
		TextColor:    "#000000",
		LineWidth:    10,
		Caption:      DefaultCaption,
	}
}

// DrawCardOverlay renders a copy of img with the contour and its bounding
// rectangle drawn on top, for visual inspection of a detection.
//
// The result starts at (0, 0); contour points are translated accordingly.
// Colours that fail to parse fall back to the defaults. An empty contour
// produces a plain copy with only the caption.
func DrawCardOverlay(img image.Image, contour detection.Contour, opts OverlayOptions) *image.RGBA {
	defaults := DefaultOverlayOptions()
	lineWidth := opts.LineWidth
	if lineWidth <= 0 {
		lineWidth = defaults.LineWidth
	}
	caption := opts.Caption
	if caption == "" {
		caption = defaults.Caption
	}

	dst := clone.AsRGBA(img)
	origin := dst.Rect.Min
	dst.Rect = dst.Rect.Sub(origin)

	dc := gg.NewContextForRGBA(dst)
	dc.SetLineWidth(lineWidth)

	if len(contour) > 0 {
		dc.SetColor(parseColor(opts.ContourColor, defaults.ContourColor))
		for i, p := range contour {
			x := float64(p.X-origin.X) + 0.5
			y := float64(p.Y-origin.Y) + 0.5
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.Stroke()

		r := detection.BoundingRect(contour).Sub(origin)
		dc.SetColor(parseColor(opts.BoundsColor, defaults.BoundsColor))
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
	}

	if !opts.HideCaption {
		dc.SetFontFace(basicfont.Face7x13)
		dc.SetColor(parseColor(opts.TextColor, defaults.TextColor))
		dc.DrawString(caption, 10, 50)
	}

	return dst
}

// parseColor parses a hex colour, accepting a missing leading '#'. It falls
// back to fallback (which must be valid) when hex is empty or malformed.
func parseColor(hex, fallback string) color.Color {
	if hex != "" {
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		if c, err := colorful.Hex(hex); err == nil {
			return c
		}
	}
	c, _ := colorful.Hex(fallback)
	return c
}

// SaveImage writes img to path, choosing PNG or JPEG from the extension.
func SaveImage(path string, img image.Image) error {
	var encoder imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encoder = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(95)
	default:
		return fmt.Errorf("unsupported output format: %q", filepath.Ext(path))
	}

	if err := imgio.Save(path, img, encoder); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
