package server

import (
	"strings"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"card_detect_edge",
		"card_blackout",
		"card_crop",
		"card_debug_overlay",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			if _, ok := props["path"]; !ok {
				t.Error("every tool takes a path")
			}

			required, ok := tool.InputSchema["required"].([]string)
			if !ok || len(required) != 1 || required[0] != "path" {
				t.Errorf("required: got %v, want [path]", tool.InputSchema["required"])
			}
		})
	}
}

func TestToolDefinitions_CardToolsShareDetectionProperties(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if !strings.HasPrefix(tool.Name, "card_") {
			continue
		}
		t.Run(tool.Name, func(t *testing.T) {
			props := tool.InputSchema["properties"].(map[string]interface{})

			threshold, ok := props["threshold"].(map[string]interface{})
			if !ok {
				t.Fatal("missing threshold property")
			}
			if threshold["minimum"] != 1 || threshold["maximum"] != 255 {
				t.Errorf("threshold range: got [%v, %v], want [1, 255]", threshold["minimum"], threshold["maximum"])
			}
			if _, ok := props["require_frame_span"]; !ok {
				t.Error("missing require_frame_span property")
			}
		})
	}
}

func TestToolDefinitions_ToolSpecificProperties(t *testing.T) {
	tests := map[string][]string{
		"card_detect_edge":   {"include_points"},
		"card_blackout":      {"output_path"},
		"card_crop":          {"scale", "output_path"},
		"card_debug_overlay": {"line_width", "contour_color", "bounds_color", "output_path"},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for name, want := range tests {
		props := toolMap[name].InputSchema["properties"].(map[string]interface{})
		for _, p := range want {
			if _, ok := props[p]; !ok {
				t.Errorf("%s: missing property %s", name, p)
			}
		}
	}

	// withProperties must not leak one tool's extras into another.
	blackout := toolMap["card_blackout"].InputSchema["properties"].(map[string]interface{})
	if _, ok := blackout["scale"]; ok {
		t.Error("card_blackout should not accept scale")
	}

	crop := toolMap["card_crop"].InputSchema["properties"].(map[string]interface{})
	scale := crop["scale"].(map[string]interface{})
	if scale["default"] != 1.0 {
		t.Errorf("card_crop.scale default: got %v, want 1.0", scale["default"])
	}
}

func TestInputSchema(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			schema, err := inputSchema(tool)
			if err != nil {
				t.Fatalf("inputSchema failed: %v", err)
			}
			if schema.Type != "object" {
				t.Errorf("Type: got %q, want object", schema.Type)
			}
			if len(schema.Required) != 1 || schema.Required[0] != "path" {
				t.Errorf("Required: got %v, want [path]", schema.Required)
			}
			if len(schema.Properties) != len(tool.InputSchema["properties"].(map[string]interface{})) {
				t.Errorf("Properties: got %d entries", len(schema.Properties))
			}

			threshold, ok := schema.Properties["threshold"]
			if strings.HasPrefix(tool.Name, "card_") != ok {
				t.Fatalf("threshold property present: %v", ok)
			}
			if ok {
				if threshold.Minimum == nil || *threshold.Minimum != 1 || threshold.Maximum == nil || *threshold.Maximum != 255 {
					t.Errorf("threshold range: got [%v, %v]", threshold.Minimum, threshold.Maximum)
				}
			}
		})
	}
}
