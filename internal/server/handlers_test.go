package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/ironsheep/idcard-ocr/internal/extract"
	"github.com/ironsheep/idcard-ocr/internal/idnumber"
	"github.com/ironsheep/idcard-ocr/internal/pipeline"
)

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t)
	req := &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)}

	resp := s.handleRequest(context.Background(), req)
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("error = %+v, want -32602", resp.Error)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s, _ := newTestServer(t)
	resp := toolCall(t, s, "image_load", map[string]string{"path": "/tmp/x.png"})

	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("error = %+v, want -32000", resp.Error)
	}
	if resp.Error.Data != "unknown tool: image_load" {
		t.Errorf("data = %v", resp.Error.Data)
	}
}

func TestHandleExtract(t *testing.T) {
	s, rec := newTestServer(t)
	front := writeFile(t, "front.jpg", []byte("front-bytes"))
	back := writeFile(t, "back.jpg", []byte("back-bytes"))

	rec.EXPECT().Recognize(gomock.Any(), []byte("front-bytes"), "eng").Return(frontText, nil)
	rec.EXPECT().Recognize(gomock.Any(), []byte("back-bytes"), "eng").Return(backText, nil)

	resp := toolCall(t, s, "idcard_extract", map[string]string{"front_path": front, "back_path": back})

	var got extract.Record
	decodeContent(t, resp, &got)
	want := extract.Record{
		Name:           "JOHN KUMAR",
		DOB:            "01/02/1990",
		Gender:         "Male",
		IdentityNumber: "234123412346",
		Address:        "12 Lane S/O Ravi",
		PostalCode:     "682001",
	}
	if got != want {
		t.Errorf("record = %+v, want %+v", got, want)
	}
}

func TestHandleExtract_MissingBackIsInputError(t *testing.T) {
	s, _ := newTestServer(t)
	front := writeFile(t, "front.jpg", []byte("front-bytes"))

	resp := toolCall(t, s, "idcard_extract", map[string]string{"front_path": front})

	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("error = %+v, want -32000", resp.Error)
	}
	data, ok := resp.Error.Data.(*ErrorData)
	if !ok {
		t.Fatalf("data is %T", resp.Error.Data)
	}
	if data.Kind != pipeline.KindInput || data.Side != pipeline.SideBack {
		t.Errorf("data = %+v", data)
	}
	if resp.Error.Message != "back image is missing" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestHandleExtract_UnreadableFile(t *testing.T) {
	s, _ := newTestServer(t)
	missing := filepath.Join(t.TempDir(), "nope.jpg")

	resp := toolCall(t, s, "idcard_extract", map[string]string{"front_path": missing, "back_path": missing})
	if resp.Error == nil {
		t.Fatal("expected an error")
	}
	if resp.Error.Message != "Tool execution failed" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestHandleExtract_ChecksumFailure(t *testing.T) {
	s, rec := newTestServer(t)
	front := writeFile(t, "front.jpg", []byte("front-bytes"))
	back := writeFile(t, "back.jpg", []byte("back-bytes"))

	rec.EXPECT().Recognize(gomock.Any(), []byte("front-bytes"), "eng").
		Return("RRR JOHN KUMAR DOB: 01/02/1990\nMale\n1234 5678 9012", nil)
	rec.EXPECT().Recognize(gomock.Any(), []byte("back-bytes"), "eng").Return(backText, nil)

	resp := toolCall(t, s, "idcard_extract", map[string]string{"front_path": front, "back_path": back})

	data, ok := resp.Error.Data.(*ErrorData)
	if !ok {
		t.Fatalf("data is %T", resp.Error.Data)
	}
	if data.Kind != pipeline.KindValidation || data.Field != "identityNumber" {
		t.Errorf("data = %+v", data)
	}
	if data.Retryable {
		t.Error("validation errors are not retryable")
	}
}

func TestHandlePreprocess(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeCardPNG(t, 400, 250)

	var got struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		MimeType    string `json:"mime_type"`
		ImageBase64 string `json:"image_base64"`
		Enhanced    bool   `json:"enhanced"`
		Original    struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"original"`
	}
	decodeContent(t, toolCall(t, s, "idcard_preprocess", map[string]string{"path": path}), &got)

	if !got.Enhanced {
		t.Error("expected an enhanced image")
	}
	if got.Width != 2000 {
		t.Errorf("width = %d, want 2000", got.Width)
	}
	if got.MimeType != "image/png" {
		t.Errorf("mime_type = %q", got.MimeType)
	}
	if got.Original.Width != 400 || got.Original.Height != 250 {
		t.Errorf("original = %+v", got.Original)
	}
	if got.ImageBase64 == "" {
		t.Error("missing image data")
	}
}

func TestHandlePreprocess_FallbackReturnsOriginal(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeFile(t, "card.jpg", []byte("not an image"))

	var got PreprocessResult
	decodeContent(t, toolCall(t, s, "idcard_preprocess", map[string]string{"path": path}), &got)

	if got.Enhanced {
		t.Error("undecodable input reported as enhanced")
	}
	if got.Fallback == "" {
		t.Error("missing fallback reason")
	}
}

func TestHandleRecognize(t *testing.T) {
	s, rec := newTestServer(t)
	path := writeFile(t, "back.jpg", []byte("back-bytes"))

	rec.EXPECT().Recognize(gomock.Any(), []byte("back-bytes"), "eng").
		Return("Address:  12 Lane\n\nKerala | 682001", nil)

	var got pipeline.SideResult
	decodeContent(t, toolCall(t, s, "idcard_recognize", map[string]interface{}{
		"path":       path,
		"side":       "back",
		"preprocess": false,
	}), &got)

	if got.Side != pipeline.SideBack {
		t.Errorf("side = %q", got.Side)
	}
	if got.Text != "Address: 12 Lane Kerala I 682001" {
		t.Errorf("text = %q", got.Text)
	}
	if got.RawText == got.Text {
		t.Error("raw text should be unnormalized")
	}
}

func TestHandleRecognize_BadSide(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeFile(t, "x.jpg", []byte("x"))

	resp := toolCall(t, s, "idcard_recognize", map[string]string{"path": path, "side": "left"})
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown side")
	}
}

func TestHandleParseText(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name      string
		front     string
		wantValid bool
		wantKind  pipeline.Kind
		wantName  string
	}{
		{"valid", frontText, true, "", "JOHN KUMAR"},
		{"checksum", "RRR JOHN KUMAR DOB: 01/02/1990\nMale\n1234 5678 9012", false, pipeline.KindValidation, "JOHN KUMAR"},
		{"missing number", "RRR JOHN KUMAR DOB: 01/02/1990 Male", false, pipeline.KindExtraction, "JOHN KUMAR"},
		{"too short", "RRR", false, pipeline.KindRecognition, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ParseTextResult
			decodeContent(t, toolCall(t, s, "idcard_parse_text", map[string]string{
				"front_text": tt.front,
				"back_text":  backText,
			}), &got)

			if got.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if tt.wantKind != "" && (got.Error == nil || got.Error.Kind != tt.wantKind) {
				t.Errorf("error = %+v, want kind %s", got.Error, tt.wantKind)
			}
			if got.Record.Name != tt.wantName {
				t.Errorf("name = %q, want %q", got.Record.Name, tt.wantName)
			}
		})
	}
}

func TestHandleValidateNumber(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		number     string
		wantValid  bool
		wantReason idnumber.Reason
		wantMasked string
	}{
		{"2341 2341 2346", true, "", "XXXX XXXX 2346"},
		{"499184972158", true, "", "XXXX XXXX 2158"},
		{"1234 5678 9012", false, idnumber.ReasonChecksum, "XXXX XXXX 9012"},
		{"12345", false, idnumber.ReasonFormat, "X 2345"},
		{"", false, idnumber.ReasonFormat, ""},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			var got ValidateNumberResult
			decodeContent(t, toolCall(t, s, "idcard_validate_number", map[string]string{"number": tt.number}), &got)

			if got.Valid != tt.wantValid || got.Reason != tt.wantReason || got.Masked != tt.wantMasked {
				t.Errorf("got %+v, want valid=%v reason=%q masked=%q", got, tt.wantValid, tt.wantReason, tt.wantMasked)
			}
		})
	}
}
