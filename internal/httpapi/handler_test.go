package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/idcard-ocr/internal/config"
	"github.com/ironsheep/idcard-ocr/internal/extract"
	"github.com/ironsheep/idcard-ocr/internal/ocr"
	"github.com/ironsheep/idcard-ocr/internal/pipeline"
)

type extractFunc func(ctx context.Context, front, back []byte) (extract.Record, error)

func (f extractFunc) Extract(ctx context.Context, front, back []byte) (extract.Record, error) {
	return f(ctx, front, back)
}

var sampleRecord = extract.Record{
	Name:           "JOHN KUMAR",
	DOB:            "01/02/1990",
	Gender:         "Male",
	IdentityNumber: "234123412346",
	Address:        "12 Lane S/O Ravi",
	PostalCode:     "682001",
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}, MaxUploadBytes: 1 << 20}
}

func newTestRouter(t *testing.T, ex Extractor, engine func() ocr.EngineInfo) http.Handler {
	t.Helper()
	cfg := testServerConfig()
	h := NewHandler(ex, engine, cfg.MaxUploadBytes, "test", nil)
	return NewRouter(h, cfg, prometheus.NewRegistry(), nil)
}

// multipartBody builds an upload with the given field to content mapping.
func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".jpg")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUpload(t *testing.T, h http.Handler, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/idcard", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp.Error
}

func TestExtract_Success(t *testing.T) {
	var gotFront, gotBack []byte
	h := newTestRouter(t, extractFunc(func(_ context.Context, front, back []byte) (extract.Record, error) {
		gotFront, gotBack = front, back
		return sampleRecord, nil
	}), nil)

	rr := postUpload(t, h, map[string][]byte{FieldFront: []byte("front"), FieldBack: []byte("back")})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, []byte("front"), gotFront)
	assert.Equal(t, []byte("back"), gotBack)

	var got extract.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, sampleRecord, got)
	assert.Contains(t, rr.Body.String(), `"identityNumber":"234123412346"`)
	assert.Contains(t, rr.Body.String(), `"postalCode":"682001"`)
}

func TestExtract_MissingFilePassesNil(t *testing.T) {
	h := newTestRouter(t, extractFunc(func(_ context.Context, front, back []byte) (extract.Record, error) {
		assert.NotNil(t, front)
		assert.Nil(t, back)
		return extract.Record{}, &pipeline.Error{
			Kind:    pipeline.KindInput,
			Side:    pipeline.SideBack,
			Message: "back image is missing",
		}
	}), nil)

	rr := postUpload(t, h, map[string][]byte{FieldFront: []byte("front")})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, pipeline.KindInput, body.Code)
	assert.Equal(t, pipeline.SideBack, body.Side)
	assert.Equal(t, "back image is missing", body.Message)
}

func TestExtract_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind   pipeline.Kind
		status int
	}{
		{pipeline.KindInput, http.StatusBadRequest},
		{pipeline.KindRecognition, http.StatusUnprocessableEntity},
		{pipeline.KindEngine, http.StatusServiceUnavailable},
		{pipeline.KindExtraction, http.StatusUnprocessableEntity},
		{pipeline.KindValidation, http.StatusUnprocessableEntity},
		{pipeline.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			h := newTestRouter(t, extractFunc(func(context.Context, []byte, []byte) (extract.Record, error) {
				return extract.Record{}, &pipeline.Error{Kind: tt.kind, Field: "identityNumber", Message: "msg"}
			}), nil)

			rr := postUpload(t, h, map[string][]byte{FieldFront: []byte("f"), FieldBack: []byte("b")})

			assert.Equal(t, tt.status, rr.Code)
			body := decodeError(t, rr)
			assert.Equal(t, tt.kind, body.Code)
			assert.Equal(t, "identityNumber", body.Field)
		})
	}
}

func TestExtract_NotMultipart(t *testing.T) {
	h := newTestRouter(t, extractFunc(func(context.Context, []byte, []byte) (extract.Record, error) {
		t.Fatal("extractor must not be called")
		return extract.Record{}, nil
	}), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/idcard", bytes.NewBufferString(`{"img1":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, pipeline.KindInput, decodeError(t, rr).Code)
}

func TestExtract_BodyTooLarge(t *testing.T) {
	cfg := testServerConfig()
	h := NewRouter(NewHandler(extractFunc(func(context.Context, []byte, []byte) (extract.Record, error) {
		t.Fatal("extractor must not be called")
		return extract.Record{}, nil
	}), nil, 2048, "test", nil), cfg, nil, nil)

	rr := postUpload(t, h, map[string][]byte{FieldFront: bytes.Repeat([]byte("x"), 4096), FieldBack: []byte("b")})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, pipeline.KindInput, decodeError(t, rr).Code)
}

func TestExtract_UntypedErrorIsInternal(t *testing.T) {
	h := newTestRouter(t, extractFunc(func(context.Context, []byte, []byte) (extract.Record, error) {
		return extract.Record{}, assert.AnError
	}), nil)

	rr := postUpload(t, h, map[string][]byte{FieldFront: []byte("f"), FieldBack: []byte("b")})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, pipeline.KindInternal, body.Code)
	assert.NotContains(t, body.Message, assert.AnError.Error())
}

func TestExtract_PanicIsRecovered(t *testing.T) {
	h := newTestRouter(t, extractFunc(func(context.Context, []byte, []byte) (extract.Record, error) {
		panic("boom")
	}), nil)

	rr := postUpload(t, h, map[string][]byte{FieldFront: []byte("f"), FieldBack: []byte("b")})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, pipeline.KindInternal, decodeError(t, rr).Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		engine     func() ocr.EngineInfo
		wantStatus int
		wantState  string
	}{
		{"no engine probe", nil, http.StatusOK, "healthy"},
		{"available", func() ocr.EngineInfo {
			return ocr.EngineInfo{Engine: "tesseract", Available: true, Version: "5.3.0"}
		}, http.StatusOK, "healthy"},
		{"unavailable", func() ocr.EngineInfo {
			return ocr.EngineInfo{Engine: "tesseract", Error: "not built"}
		}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, nil, tt.engine)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var got HealthResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, tt.wantState, got.Status)
			assert.Equal(t, "idcard-ocr", got.Service)
			assert.Equal(t, "test", got.Version)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := pipeline.NewMetrics(reg)
	m.ObserveOutcome("done")

	cfg := testServerConfig()
	h := NewRouter(NewHandler(nil, nil, cfg.MaxUploadBytes, "test", nil), cfg, reg, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `idcard_extractions_total{outcome="done"} 1`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/idcard", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
