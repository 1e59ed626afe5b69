package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"raster_info",
		"raster_load_stack",
		"raster_subset",
		"raster_classify",
		"raster_reproject",
		"raster_quicklook",
		"raster_export",
		"raster_release",
		"geo_distance",
		"landcover_run",
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
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
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]any)
			if !ok {
				t.Fatal("InputSchema missing 'properties' map")
			}

			// Every required argument must be declared.
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required argument %q has no property", r)
				}
			}
		})
	}
}

func TestToolDefinitions_GridID(t *testing.T) {
	toolsRequiringGrid := []string{
		"raster_subset",
		"raster_classify",
		"raster_reproject",
		"raster_quicklook",
		"raster_export",
		"raster_release",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}
	for _, name := range toolsRequiringGrid {
		t.Run(name, func(t *testing.T) {
			required, ok := toolMap[name].InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			hasGrid := false
			for _, r := range required {
				if r == "grid_id" {
					hasGrid = true
				}
			}
			if !hasGrid {
				t.Error("grid_id should be required")
			}
		})
	}
}
