package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// frameProperties are the two ways a tool receives a frame.
func frameProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the image file",
		},
		"image": map[string]interface{}{
			"type":        "string",
			"description": "Inline frame as a data URL (data:image/jpeg;base64,...) or raw base64. Used when path is empty.",
		},
	}
}

func radiusProperties(props map[string]interface{}) map[string]interface{} {
	props["min_radius"] = map[string]interface{}{
		"type":        "integer",
		"description": "Smallest utensil radius in pixels. 0 derives max(30, min(w,h)/8)",
		"default":     0,
	}
	props["max_radius"] = map[string]interface{}{
		"type":        "integer",
		"description": "Largest utensil radius in pixels. 0 derives max(60, min(w,h)/2)",
		"default":     0,
	}
	return props
}

func scaleProperties(props map[string]interface{}) map[string]interface{} {
	props["utensil"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"plate", "bowl", "auto"},
		"description": "Utensil kind. Only plates get a volume estimate",
		"default":     "auto",
	}
	props["diameter_mm"] = map[string]interface{}{
		"type":        "number",
		"description": "Interior diameter of the utensil in millimetres",
		"default":     260.0,
	}
	props["assumed_height_mm"] = map[string]interface{}{
		"type":        "number",
		"description": "Assumed average food height on a plate in millimetres",
		"default":     15.0,
	}
	return radiusProperties(props)
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	measureProps := scaleProperties(frameProperties())
	measureProps["session_id"] = map[string]interface{}{
		"type":        "string",
		"description": "Session from plate_session_start. Smooths the boundary across frames and uses the session's scale settings",
	}
	measureProps["overlay"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Return an annotated JPEG overlay as a data URL",
		"default":     false,
	}
	measureProps["debug"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Return edge, coarse and trimap images as base64 PNGs",
		"default":     false,
	}

	return []Tool{
		// Frame Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and the utensil radius bounds derived from its size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Run the Canny edge detector used by the utensil locator and return the edge map as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low hysteresis threshold (0-255)",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High hysteresis threshold (0-255)",
						"default":     150,
					},
					"sigma": map[string]interface{}{
						"type":        "number",
						"description": "Gaussian blur sigma before differentiation",
						"default":     1.4,
					},
				},
				"required": []string{"path"},
			},
		},

		// Pipeline Stages
		{
			Name:        "plate_detect_utensil",
			Description: "Find the plate or bowl boundary (center, semi-axes, angle) and report which detection strategy found it.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": radiusProperties(frameProperties()),
			},
		},
		{
			Name:        "plate_sample_rim",
			Description: "Detect the utensil and estimate the empty-surface color from a thin ring just inside its rim.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": radiusProperties(frameProperties()),
			},
		},
		{
			Name:        "plate_measure",
			Description: "Measure how much of the utensil interior is covered by food (percent, by area) and, for plates, a rough flat-extrusion volume in ml.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": measureProps,
			},
		},

		// Sessions
		{
			Name:        "plate_session_start",
			Description: "Start a measurement session for consecutive frames of one utensil. Returns a session_id for plate_measure.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": scaleProperties(map[string]interface{}{}),
			},
		},
		{
			Name:        "plate_session_end",
			Description: "End a measurement session and report how many frames it measured.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": map[string]interface{}{
						"type":        "string",
						"description": "Session to end",
					},
				},
				"required": []string{"session_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
