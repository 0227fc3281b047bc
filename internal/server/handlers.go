package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ironsheep/card-scanner/internal/detection"
	"github.com/ironsheep/card-scanner/internal/imaging"
)

// toolHandler adapts executeTool to the MCP SDK for the named tool.
//
// A successful result is returned as a single text content holding the JSON
// result. Malformed arguments are reported as a JSON-RPC invalid params
// error; any other failure becomes a tool result with isError set so the
// client sees the reason.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		result, err := s.executeTool(name, args)
		if err != nil {
			var rpcErr *jsonrpc.Error
			if errors.As(err, &rpcErr) {
				return nil, rpcErr
			}
			s.logger.Info("tool failed", "tool", name, "error", err)

			res := new(mcp.CallToolResult)
			res.SetError(err)
			return res, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: mustMarshalJSON(result)},
			},
		}, nil
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Card Detection
	case "card_detect_edge":
		return s.handleCardDetectEdge(args)
	case "card_blackout":
		return s.handleCardBlackout(args)
	case "card_crop":
		return s.handleCardCrop(args)
	case "card_debug_overlay":
		return s.handleCardDebugOverlay(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// invalidParams reports a bad tool argument as a JSON-RPC -32602 error.
func invalidParams(format string, args ...interface{}) error {
	return &jsonrpc.Error{
		Code:    jsonrpc.CodeInvalidParams,
		Message: fmt.Sprintf("Invalid params: "+format, args...),
	}
}

// decodeArgs unmarshals tool arguments into v.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Card Detection Handlers ===

// Point is a pixel coordinate in the source photo.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned rectangle; (x2, y2) is exclusive.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// CardCorners are the corners of the card's bounding rectangle.
type CardCorners struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
}

// CardEdgeResult is returned by card_detect_edge.
type CardEdgeResult struct {
	ImageWidth    int         `json:"image_width"`
	ImageHeight   int         `json:"image_height"`
	Bounds        Rect        `json:"bounds"`
	Corners       CardCorners `json:"corners"`
	Area          float64     `json:"area"`
	PointCount    int         `json:"point_count"`
	ContourCount  int         `json:"contour_count"`
	FrameExcluded bool        `json:"frame_excluded"`
	Points        []Point     `json:"points,omitempty"`
}

// CardImageResult is returned by the tools that render an image of the card.
type CardImageResult struct {
	imaging.EncodedImage
	Bounds  Rect   `json:"bounds"`
	SavedTo string `json:"saved_to,omitempty"`
}

type cardArgs struct {
	Path             string `json:"path"`
	Threshold        *int   `json:"threshold,omitempty"`
	RequireFrameSpan *bool  `json:"require_frame_span,omitempty"`
}

func toPoint(p image.Point) Point {
	return Point{X: p.X, Y: p.Y}
}

func toRect(r image.Rectangle) Rect {
	return Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// detectCard loads the photo and runs the detector with the server defaults
// overridden by the call's arguments.
func (s *Server) detectCard(a cardArgs) (image.Image, *detection.Result, error) {
	opts := s.detect
	if a.Threshold != nil {
		if *a.Threshold < 1 || *a.Threshold > 255 {
			return nil, nil, invalidParams("threshold must be between 1 and 255, got %d", *a.Threshold)
		}
		opts.Threshold = uint8(*a.Threshold)
	}
	if a.RequireFrameSpan != nil {
		opts.RequireFrameSpan = *a.RequireFrameSpan
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}

	res, err := detection.Analyze(img, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to detect card: %w", err)
	}
	return img, res, nil
}

type cardDetectEdgeArgs struct {
	cardArgs
	IncludePoints bool `json:"include_points"`
}

func (s *Server) handleCardDetectEdge(args json.RawMessage) (interface{}, error) {
	var a cardDetectEdgeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, res, err := s.detectCard(a.cardArgs)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	result := &CardEdgeResult{
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
		Bounds:      toRect(res.Bounds),
		Corners: CardCorners{
			TopLeft:     toPoint(res.Corners.TopLeft),
			TopRight:    toPoint(res.Corners.TopRight),
			BottomLeft:  toPoint(res.Corners.BottomLeft),
			BottomRight: toPoint(res.Corners.BottomRight),
		},
		Area:          res.Area,
		PointCount:    res.PointCount,
		ContourCount:  res.ContourCount,
		FrameExcluded: res.FrameExcluded,
	}
	if a.IncludePoints {
		result.Points = make([]Point, len(res.Contour))
		for i, p := range res.Contour {
			result.Points[i] = toPoint(p)
		}
	}
	return result, nil
}

type cardBlackoutArgs struct {
	cardArgs
	OutputPath string `json:"output_path"`
}

func (s *Server) handleCardBlackout(args json.RawMessage) (interface{}, error) {
	var a cardBlackoutArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, res, err := s.detectCard(a.cardArgs)
	if err != nil {
		return nil, err
	}

	out, err := imaging.BlackoutOutsideContour(img, res.Contour)
	if err != nil {
		return nil, err
	}
	return s.cardImageResult(out, res.Bounds, a.OutputPath)
}

type cardCropArgs struct {
	cardArgs
	Scale      float64 `json:"scale"`
	OutputPath string  `json:"output_path"`
}

func (s *Server) handleCardCrop(args json.RawMessage) (interface{}, error) {
	var a cardCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, res, err := s.detectCard(a.cardArgs)
	if err != nil {
		return nil, err
	}

	cropped, err := imaging.CropToContour(img, res.Contour)
	if err != nil {
		return nil, err
	}
	return s.cardImageResult(imaging.Scale(cropped, a.Scale), res.Bounds, a.OutputPath)
}

type cardDebugOverlayArgs struct {
	cardArgs
	LineWidth    float64 `json:"line_width"`
	ContourColor string  `json:"contour_color"`
	BoundsColor  string  `json:"bounds_color"`
	OutputPath   string  `json:"output_path"`
}

func (s *Server) handleCardDebugOverlay(args json.RawMessage) (interface{}, error) {
	var a cardDebugOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, res, err := s.detectCard(a.cardArgs)
	if err != nil {
		return nil, err
	}

	opts := imaging.DefaultOverlayOptions()
	if a.LineWidth > 0 {
		opts.LineWidth = a.LineWidth
	}
	if a.ContourColor != "" {
		opts.ContourColor = a.ContourColor
	}
	if a.BoundsColor != "" {
		opts.BoundsColor = a.BoundsColor
	}
	return s.cardImageResult(imaging.DrawCardOverlay(img, res.Contour, opts), res.Bounds, a.OutputPath)
}

// cardImageResult encodes img for the response and, when outputPath is set,
// also writes it to disk.
func (s *Server) cardImageResult(img image.Image, bounds image.Rectangle, outputPath string) (*CardImageResult, error) {
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	result := &CardImageResult{
		EncodedImage: *encoded,
		Bounds:       toRect(bounds),
	}
	if outputPath != "" {
		if err := imaging.SaveImage(outputPath, img); err != nil {
			return nil, err
		}
		result.SavedTo = outputPath
		s.logger.Debug("card image saved", "path", outputPath)
	}
	return result, nil
}
