package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Full extraction
		{
			Name:        "idcard_extract",
			Description: "Extract name, date of birth, gender, identity number, address and postal code from photographs of the front and back of an identity card. The identity number is verified with its Verhoeff check digit. Failures are reported with a kind such as input_error, recognition_error or validation_error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"front_path": pathProperty("Absolute path to the photograph of the card front"),
					"back_path":  pathProperty("Absolute path to the photograph of the card back"),
				},
				"required": []string{"front_path", "back_path"},
			},
		},

		// Individual stages
		{
			Name:        "idcard_preprocess",
			Description: "Run the OCR preprocessing chain on one card photograph (margin crop, grayscale, contrast, sharpen, binarize, resize, orientation) and return the result as base64-encoded PNG. Use this to see what the recognizer sees.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "idcard_recognize",
			Description: "Recognize the text on one side of a card. Returns the raw recognizer output and the normalized text the field rules run on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
					"side": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"front", "back"},
						"description": "Which side of the card the image shows (default: front)",
					},
					"preprocess": map[string]interface{}{
						"type":        "boolean",
						"description": "Enhance the image before recognition (default: true)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "idcard_parse_text",
			Description: "Extract a card record from text that was already recognized, without touching any image. Returns the best-effort record and whether it passed validation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"front_text": map[string]interface{}{
						"type":        "string",
						"description": "Recognized text of the card front",
					},
					"back_text": map[string]interface{}{
						"type":        "string",
						"description": "Recognized text of the card back",
					},
				},
				"required": []string{"front_text", "back_text"},
			},
		},
		{
			Name:        "idcard_validate_number",
			Description: "Check a 12-digit identity number against its Verhoeff check digit. Spaces are ignored. The response only ever shows the last four digits.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"number": map[string]interface{}{
						"type":        "string",
						"description": "Identity number, e.g. \"2341 2341 2346\"",
					},
				},
				"required": []string{"number"},
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
