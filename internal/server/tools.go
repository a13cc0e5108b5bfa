package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// tileProperties describes the square tile arguments shared by several tools.
func tileProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"x": map[string]interface{}{
			"type":        "integer",
			"description": "Left edge of the tile in frame coordinates (0-based)",
		},
		"y": map[string]interface{}{
			"type":        "integer",
			"description": "Top edge of the tile in frame coordinates (0-based)",
		},
		"size": map[string]interface{}{
			"type":        "integer",
			"description": "Side length of the square tile in pixels",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	cropProps := tileProperties()
	cropProps["scale"] = map[string]interface{}{
		"type":        "number",
		"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
		"default":     1.0,
	}

	textProps := tileProperties()
	textProps["language"] = map[string]interface{}{
		"type":        "string",
		"description": "Tesseract language code. Default from server config (usually 'eng')",
	}

	return []Tool{
		// Frame Information
		{
			Name:        "image_load",
			Description: "Load a photo, resample it to the camera frame size and return its dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at a frame pixel, including its HSV value and whether the detector counts it as red.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Detection
		{
			Name:        "sign_detect",
			Description: "Scan a photo for a road sign. Returns the class, label, confidence, margin and the tile where it was found. Tiles are tried from the largest scale down and the first confident match wins.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"read_text": map[string]interface{}{
						"type":        "boolean",
						"description": "Run OCR over the accepted tile. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sign_candidate_stats",
			Description: "Compute the color filter statistics (red fraction and centre contrast) for one tile and whether it would be passed to the classifier.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": tileProperties(),
				"required":   []string{"path", "x", "y", "size"},
			},
		},
		{
			Name:        "sign_red_bbox",
			Description: "Find the bounding box of red pixels inside a tile, padded by 10% and returned in frame coordinates.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": tileProperties(),
				"required":   []string{"path", "x", "y", "size"},
			},
		},
		{
			Name:        "sign_crop_tile",
			Description: "Crop a square tile from the frame and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": cropProps,
				"required":   []string{"path", "x", "y", "size"},
			},
		},
		{
			Name:        "sign_annotate",
			Description: "Scan a photo and write a copy with the accepted tile outlined in green and the red bounding box in red.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the annotated image (.png or .jpg)",
					},
				},
				"required": []string{"path", "output_path"},
			},
		},
		{
			Name:        "sign_read_text",
			Description: "Read the legend printed on a sign tile using OCR.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": textProps,
				"required":   []string{"path", "x", "y", "size"},
			},
		},
		{
			Name:        "sign_info",
			Description: "Describe the detector: thresholds, scales, classifier input size, class labels and OCR availability.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
