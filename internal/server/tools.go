package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// withPipelineProperties adds the configuration overrides shared by the
// pipeline tools to props.
func withPipelineProperties(props map[string]interface{}) map[string]interface{} {
	props["area_threshold"] = map[string]interface{}{
		"type":        "integer",
		"description": "Pixel area splitting particles (below) from wires (at or above). Default from server config (1000)",
	}
	props["iterations"] = map[string]interface{}{
		"type":        "integer",
		"description": "Global erosion count that splits touching wires; negative dilates instead",
	}
	props["smoothing_iterations"] = map[string]interface{}{
		"type":        "integer",
		"description": "Dilate-then-erode smoothing pairs applied to each wire",
	}
	props["extra_iterations"] = map[string]interface{}{
		"type":        "integer",
		"description": "Additional dilations of each wire after smoothing",
	}
	props["pixels_per_micron"] = map[string]interface{}{
		"type":        "number",
		"description": "Calibration used to report diameters in nanometres",
	}
	return props
}

var regionSchema = map[string]interface{}{
	"type":        "object",
	"description": "Rectangle in pixel coordinates; x2 and y2 are exclusive",
	"properties": map[string]interface{}{
		"x1": map[string]interface{}{"type": "integer"},
		"y1": map[string]interface{}{"type": "integer"},
		"x2": map[string]interface{}{"type": "integer"},
		"y2": map[string]interface{}{"type": "integer"},
	},
	"required": []string{"x1", "y1", "x2", "y2"},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Inputs
		{
			Name:        "wire_mask_info",
			Description: "Load a binary segmentation mask and report its dimensions, format and the fraction of feature pixels. Use this to check the features_white setting before running a pipeline.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the mask image",
					},
					"features_white": map[string]interface{}{
						"type":        "boolean",
						"description": "True when features are bright on a dark matrix. Default false",
						"default":     false,
					},
					"level": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance threshold 1-255. Default from server config (128)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "wire_scale_bar",
			Description: "Find the scale bar of a micrograph and read its label to calibrate pixels per micron. Pass label to skip OCR when the text is already known.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the micrograph",
					},
					"region": regionSchema,
					"dark": map[string]interface{}{
						"type":        "boolean",
						"description": "True for a dark bar on a light panel",
						"default":     false,
					},
					"level": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance threshold 1-255 separating bar and panel",
					},
					"min_length": map[string]interface{}{
						"type":        "integer",
						"description": "Shortest run accepted as a bar, in pixels. Default 20",
					},
					"label": map[string]interface{}{
						"type":        "string",
						"description": "Bar label such as \"500 nm\"; replaces OCR",
					},
				},
				"required": []string{"path"},
			},
		},

		// Pipelines
		{
			Name:        "wire_small_features",
			Description: "Measure compact particles (area below the threshold) with the ellipse-equivalent diameter. Optionally writes the small-feature diameter map (.npy) and the wires mask (.tif) for wire_large_features.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPipelineProperties(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the segmentation mask",
					},
					"features_white": map[string]interface{}{
						"type":        "boolean",
						"description": "True when features are bright on a dark matrix. Default false",
						"default":     false,
					},
					"level": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance threshold 1-255",
					},
					"write_outputs": map[string]interface{}{
						"type":        "boolean",
						"description": "Write <name>_small_features.npy and <name>_wires.tif",
						"default":     false,
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for written files. Default: beside the mask",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "wire_large_features",
			Description: "Measure wires (area at or above the threshold): refine each with morphology, rotate it upright and scan-average its width. Optionally merges a small-feature map and writes the combined map and a JSON report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPipelineProperties(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the wires mask, usually <name>_wires.tif",
					},
					"features_white": map[string]interface{}{
						"type":        "boolean",
						"description": "True when features are bright. Default true, matching wire_small_features output",
						"default":     true,
					},
					"level": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance threshold 1-255",
					},
					"small_map": map[string]interface{}{
						"type":        "string",
						"description": "Small-feature diameter map (.npy) to merge into the result",
					},
					"diameters_output": map[string]interface{}{
						"type":        "string",
						"description": "Path for the (merged) diameter map (.npy)",
					},
					"report_output": map[string]interface{}{
						"type":        "string",
						"description": "Path for the JSON report",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "wire_inspect_component",
			Description: "Run a pipeline and render one measured component: its refined pixels with the traced polygon and minimum-area rectangle, plus the upright canonical shape for wires. Returns base64 PNGs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPipelineProperties(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the mask",
					},
					"pipeline": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"small", "large"},
						"description": "Which pipeline to run. Default large",
						"default":     "large",
					},
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "1-based component number in raster scan order",
					},
					"features_white": map[string]interface{}{
						"type":        "boolean",
						"description": "True when features are bright. Default true for large, false for small",
					},
					"level": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance threshold 1-255",
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Pixel magnification of the renderings. Default 4",
						"default":     4,
					},
				}),
				"required": []string{"path", "index"},
			},
		},

		// Diameter maps
		{
			Name:        "wire_merge_maps",
			Description: "Overlay a small-feature diameter map onto a large-feature map. Non-zero small values win. Both maps must have the same dimensions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"large": map[string]interface{}{
						"type":        "string",
						"description": "Large-feature diameter map (.npy)",
					},
					"small": map[string]interface{}{
						"type":        "string",
						"description": "Small-feature diameter map (.npy)",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Path for the merged map (.npy)",
					},
				},
				"required": []string{"large", "small", "output"},
			},
		},
		{
			Name:        "wire_render_diameter_map",
			Description: "Render a diameter map (.npy) as a heatmap PNG, blue for thin to red for thick features. Optionally crop, scale and save it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"map": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the diameter map (.npy)",
					},
					"max": map[string]interface{}{
						"type":        "number",
						"description": "Diameter drawn in the high colour. Default: largest value in the map",
					},
					"region": regionSchema,
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
					"low_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for thin features. Default #2c7bb6",
					},
					"high_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for thick features. Default #d7191c",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Also save the rendering to this path (format from extension)",
					},
				},
				"required": []string{"map"},
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
