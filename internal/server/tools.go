package server

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the card photo",
	}
}

// detectProperties are accepted by every card_* tool.
func detectProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Grayscale intensity (0-255) at or above which a pixel belongs to the card. Default 70",
			"minimum":     1,
			"maximum":     255,
		},
		"require_frame_span": map[string]interface{}{
			"type":        "boolean",
			"description": "Only discard the outer frame contour when it spans the whole image. Default false",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func outputPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Optional file path (.png or .jpg) to also write the result to",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load a card photo and return its dimensions, format and colour model. EXIF orientation is applied.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Card Detection
		{
			Name:        "card_detect_edge",
			Description: "Locate the outer edge of a card photographed against a darker background. Returns the bounding rectangle, corners, enclosed area and optionally every contour point.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectProperties(), map[string]interface{}{
					"include_points": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the full contour point list. Default false",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_blackout",
			Description: "Detect the card and return the photo with everything outside the card painted black, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectProperties(), map[string]interface{}{
					"output_path": outputPathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_crop",
			Description: "Detect the card and return the photo cropped to the card's bounding rectangle, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectProperties(), map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 0.5 to halve the size). Default 1.0",
						"default":     1.0,
					},
					"output_path": outputPathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_debug_overlay",
			Description: "Detect the card and draw the contour (green) and its bounding rectangle (red) over the photo for visual inspection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectProperties(), map[string]interface{}{
					"line_width": map[string]interface{}{
						"type":        "number",
						"description": "Stroke width in pixels. Default 10",
					},
					"contour_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour of the contour. Default #00FF00",
					},
					"bounds_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour of the bounding rectangle. Default #FF0000",
					},
					"output_path": outputPathProperty(),
				}),
				"required": []string{"path"},
			},
		},
	}
}

// inputSchema converts the tool's schema literal into the form the MCP
// server advertises in tools/list.
func inputSchema(t Tool) (*jsonschema.Schema, error) {
	data, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil, err
	}

	schema := new(jsonschema.Schema)
	if err := schema.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return schema, nil
}
