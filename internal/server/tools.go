package server

import "github.com/ironsheep/stencil-tools-mcp/internal/curve"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the source photograph",
	}
}

func pointsSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 255},
				"y": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 255},
			},
			"required": []string{"x", "y"},
		},
		"minItems": 2,
	}
}

func presetNames() []string {
	var names []string
	for _, p := range curve.Presets() {
		names = append(names, p.Name)
	}
	return names
}

// settingsProperties returns the optional settings shared by
// stencil_process and stencil_update_settings.
func settingsProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"levels": map[string]interface{}{
			"type":        "integer",
			"minimum":     2,
			"maximum":     20,
			"description": "Maximum number of palette colours (grey bands in black-and-white mode). Default 10",
		},
		"opacity": map[string]interface{}{
			"type":        "integer",
			"minimum":     0,
			"maximum":     100,
			"description": "Weight of the quantized image in the final blend: 0 keeps the tone-mapped photo, 100 the flat stencil. Default 50",
		},
		"black_and_white": map[string]interface{}{
			"type":        "boolean",
			"description": "Quantize luminance only and desaturate the result",
		},
		"preset": map[string]interface{}{
			"type":        "string",
			"enum":        presetNames(),
			"description": "Named curve preset; replaces both curves",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	processProps := settingsProperties()
	processProps["curves"] = map[string]interface{}{
		"type":        "object",
		"description": "Explicit tone curves; each channel given replaces the preset's curve for that channel",
		"properties": map[string]interface{}{
			"all": pointsSchema("Curve applied to red, green and blue. x strictly ascending, first x=0, last x=255"),
			"red": pointsSchema("Curve applied to red after the all-channel curve"),
		},
	}
	processProps["tier"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"low", "high"},
		"description": "Quantization fidelity. low trades accuracy for speed. Default high",
	}

	return []Tool{
		{
			Name:        "stencil_load",
			Description: "Load a photograph, apply EXIF orientation and fit it to the configured maximum dimension (1200px by default). Returns working and original sizes and the most frequent colours.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"colors": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"description": "Number of dominant colours to report, most common first. 0 skips the analysis. Default 5",
						"default":     5,
					},
					"reload": map[string]interface{}{
						"type":        "boolean",
						"description": "Read the file again and discard the image's editing session",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stencil_process",
			Description: "Run the stencil pipeline once: tone curves, colour quantization and blend. Returns the curve-adjusted image and the final stencil as base64 PNG plus the palette ordered dark to light.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": processProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "stencil_curve_presets",
			Description: "List the named tone-curve presets and their control points.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "stencil_edit_curve",
			Description: "Edit the draft tone curve of an image's editing session. Schedules a fast low-fidelity preview; call stencil_commit to render at full quality. Moving an interior point onto or past a neighbour removes it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"channel": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"all", "red"},
						"description": "Curve to edit. Default all",
					},
					"action": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"insert", "move", "remove", "reset", "preset"},
						"description": "insert (x, y), move (index or at, x, y), remove (index or at), reset to identity, or preset (preset) to replace both draft curves",
					},
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Control point index for move and remove (0 is the x=0 endpoint)",
					},
					"at": map[string]interface{}{
						"type":        "integer",
						"description": "Selects the control point nearest this input intensity (within 8) when index is omitted",
					},
					"preset": map[string]interface{}{
						"type":        "string",
						"enum":        presetNames(),
						"description": "Curve preset for the preset action",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Input intensity, 0-255",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Output intensity, 0-255",
					},
				},
				"required": []string{"path", "action"},
			},
		},
		{
			Name:        "stencil_update_settings",
			Description: "Change the committed levels, opacity, black-and-white mode or curve preset of an editing session and start a full-quality run.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": settingsProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "stencil_commit",
			Description: "Commit the draft curves of an editing session, run the pipeline at full quality and wait for the result. Returns the palette ordered dark to light.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum time to wait for the run in milliseconds. Default 30000",
						"default":     30000,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stencil_export",
			Description: "Write the latest stencil of an editing session to a file. The format follows the output extension (png, jpg, gif, tif, bmp).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the file to write",
					},
					"artifact": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"final", "curved"},
						"description": "final (default) is the blended stencil, curved the tone-mapped photo",
						"default":     "final",
					},
					"paletted": map[string]interface{}{
						"type":        "boolean",
						"description": "Write an 8-bit paletted PNG (output must end in .png)",
					},
				},
				"required": []string{"path", "output"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return resultResponse(req.ID, struct {
		Tools []Tool `json:"tools"`
	}{GetToolDefinitions()})
}
