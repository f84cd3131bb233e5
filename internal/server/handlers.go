package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/idcard-ocr/internal/extract"
	"github.com/ironsheep/idcard-ocr/internal/idnumber"
	"github.com/ironsheep/idcard-ocr/internal/imaging"
	"github.com/ironsheep/idcard-ocr/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "idcard_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// ErrorData is the data member of a JSON-RPC error caused by a pipeline failure.
type ErrorData struct {
	Kind      pipeline.Kind `json:"kind"`
	Message   string        `json:"message"`
	Field     string        `json:"field,omitempty"`
	Side      pipeline.Side `json:"side,omitempty"`
	Retryable bool          `json:"retryable"`
}

func newErrorData(err error) *ErrorData {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return nil
	}
	return &ErrorData{
		Kind:      pe.Kind,
		Message:   pe.Message,
		Field:     pe.Field,
		Side:      pe.Side,
		Retryable: pe.Kind.Retryable(),
	}
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Pipeline failures carry an ErrorData; other failures carry the error string.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if data := newErrorData(err); data != nil {
			return s.errorResponse(req.ID, -32000, data.Message, data)
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "idcard_extract":
		return s.handleExtract(ctx, args)
	case "idcard_preprocess":
		return s.handlePreprocess(args)
	case "idcard_recognize":
		return s.handleRecognize(ctx, args)
	case "idcard_parse_text":
		return s.handleParseText(ctx, args)
	case "idcard_validate_number":
		return s.handleValidateNumber(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

func mustMarshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal result: %s"}`, err.Error())
	}
	return string(data)
}

// readOptional loads path, or returns nil for an empty path so the pipeline
// can report the missing side itself.
func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return imaging.ReadFile(path)
}

type extractArgs struct {
	FrontPath string `json:"front_path"`
	BackPath  string `json:"back_path"`
}

func (s *Server) handleExtract(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a extractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	front, err := readOptional(a.FrontPath)
	if err != nil {
		return nil, fmt.Errorf("front_path: %w", err)
	}
	back, err := readOptional(a.BackPath)
	if err != nil {
		return nil, fmt.Errorf("back_path: %w", err)
	}

	rec, err := s.pipeline.Extract(ctx, front, back)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type pathArgs struct {
	Path string `json:"path"`
}

// PreprocessResult is the idcard_preprocess response.
type PreprocessResult struct {
	*imaging.EncodedImage
	Enhanced bool `json:"enhanced"`
	// Fallback explains why the original image was returned unchanged.
	Fallback string             `json:"fallback,omitempty"`
	Original imaging.Dimensions `json:"original"`
}

func (s *Server) handlePreprocess(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	data, err := imaging.ReadFile(a.Path)
	if err != nil {
		return nil, err
	}

	out := s.preprocessor.Process(data)
	res := &PreprocessResult{
		EncodedImage: imaging.EncodeForTransport(out.Data),
		Enhanced:     out.Enhanced(),
		Original:     out.Dimensions,
	}
	if out.Fallback != nil {
		res.Fallback = out.Fallback.Error()
	}
	return res, nil
}

type recognizeArgs struct {
	Path       string `json:"path"`
	Side       string `json:"side"`
	Preprocess *bool  `json:"preprocess"`
}

func (s *Server) handleRecognize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a recognizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	side := pipeline.SideFront
	switch a.Side {
	case "", string(pipeline.SideFront):
	case string(pipeline.SideBack):
		side = pipeline.SideBack
	default:
		return nil, fmt.Errorf("side must be front or back, got %q", a.Side)
	}

	data, err := imaging.ReadFile(a.Path)
	if err != nil {
		return nil, err
	}

	p := s.pipeline
	if a.Preprocess != nil && !*a.Preprocess {
		p = p.WithoutPreprocessing()
	}
	return p.RecognizeSide(ctx, side, data)
}

type parseTextArgs struct {
	FrontText string `json:"front_text"`
	BackText  string `json:"back_text"`
}

// ParseTextResult is the idcard_parse_text response. Record holds whatever
// could be extracted even when Valid is false.
type ParseTextResult struct {
	Record extract.Record `json:"record"`
	Valid  bool           `json:"valid"`
	Error  *ErrorData     `json:"error,omitempty"`
}

func (s *Server) handleParseText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parseTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	rec, err := s.pipeline.ExtractText(ctx, a.FrontText, a.BackText)
	return &ParseTextResult{
		Record: rec,
		Valid:  err == nil,
		Error:  newErrorData(err),
	}, nil
}

type validateNumberArgs struct {
	Number string `json:"number"`
}

// ValidateNumberResult is the idcard_validate_number response.
type ValidateNumberResult struct {
	Valid  bool            `json:"valid"`
	Reason idnumber.Reason `json:"reason,omitempty"`
	Masked string          `json:"masked"`
}

func (s *Server) handleValidateNumber(args json.RawMessage) (interface{}, error) {
	var a validateNumberArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	res := &ValidateNumberResult{Valid: true, Masked: idnumber.Mask(a.Number)}
	var ve *idnumber.Error
	if err := idnumber.Validate(a.Number); errors.As(err, &ve) {
		res.Valid = false
		res.Reason = ve.Reason
	}
	return res, nil
}
