package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"image_load",
		"image_edge_detect",
		"plate_detect_utensil",
		"plate_sample_rim",
		"plate_measure",
		"plate_session_start",
		"plate_session_end",
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
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name is empty")
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("Tool InputSchema is nil")
			}

			schemaType, ok := tool.InputSchema["type"]
			if !ok {
				t.Error("InputSchema missing 'type' field")
			}
			if schemaType != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", schemaType)
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			for name, p := range props {
				param, ok := p.(map[string]interface{})
				if !ok {
					t.Errorf("%s: parameter should be a map", name)
					continue
				}
				if param["type"] == nil || param["description"] == nil {
					t.Errorf("%s: parameter needs type and description", name)
				}
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := []struct {
		tool     string
		required string
	}{
		{"image_load", "path"},
		{"image_edge_detect", "path"},
		{"plate_session_end", "session_id"},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			tool, ok := toolMap[tt.tool]
			if !ok {
				t.Fatalf("tool %s not found", tt.tool)
			}
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			found := false
			for _, r := range required {
				if r == tt.required {
					found = true
				}
			}
			if !found {
				t.Errorf("%s should require %q", tt.tool, tt.required)
			}
		})
	}
}

func TestToolDefinitions_FrameInput(t *testing.T) {
	// Pipeline tools accept either a path or an inline image, so neither is required.
	for _, tool := range GetToolDefinitions() {
		switch tool.Name {
		case "plate_detect_utensil", "plate_sample_rim", "plate_measure":
		default:
			continue
		}
		t.Run(tool.Name, func(t *testing.T) {
			props := tool.InputSchema["properties"].(map[string]interface{})
			for _, name := range []string{"path", "image", "min_radius", "max_radius"} {
				if _, ok := props[name]; !ok {
					t.Errorf("missing %s", name)
				}
			}
			if _, ok := tool.InputSchema["required"]; ok {
				t.Error("pipeline tools should not require any parameter")
			}
		})
	}
}

func TestToolDefinitions_UtensilEnum(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "plate_measure" && tool.Name != "plate_session_start" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		utensil, ok := props["utensil"].(map[string]interface{})
		if !ok {
			t.Fatalf("%s: utensil property missing", tool.Name)
		}
		enum, ok := utensil["enum"].([]string)
		if !ok {
			t.Fatalf("%s: utensil should have enum", tool.Name)
		}
		want := map[string]bool{"plate": true, "bowl": true, "auto": true}
		if len(enum) != len(want) {
			t.Errorf("%s: enum got %v", tool.Name, enum)
		}
		for _, e := range enum {
			if !want[e] {
				t.Errorf("%s: unexpected utensil %q", tool.Name, e)
			}
		}
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"image_edge_detect":   {"threshold_low": 50, "threshold_high": 150, "sigma": 1.4},
		"plate_measure":       {"utensil": "auto", "diameter_mm": 260.0, "assumed_height_mm": 15.0, "overlay": false, "debug": false},
		"plate_session_start": {"utensil": "auto", "assumed_height_mm": 15.0},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for toolName, expectedDefaults := range toolDefaults {
		tool, ok := toolMap[toolName]
		if !ok {
			t.Errorf("Tool %s not found", toolName)
			continue
		}

		props, ok := tool.InputSchema["properties"].(map[string]interface{})
		if !ok {
			t.Errorf("%s: properties should be a map", toolName)
			continue
		}

		for paramName, expectedDefault := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s.%s: parameter not found or not a map", toolName, paramName)
				continue
			}

			actualDefault, ok := param["default"]
			if !ok {
				t.Errorf("%s.%s: missing default value", toolName, paramName)
				continue
			}
			if actualDefault != expectedDefault {
				t.Errorf("%s.%s: default got %v (%T), want %v (%T)",
					toolName, paramName, actualDefault, actualDefault, expectedDefault, expectedDefault)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}

	expected := GetToolDefinitions()
	if len(toolsList) != len(expected) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(expected))
	}
}
