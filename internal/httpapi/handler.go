package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ironsheep/idcard-ocr/internal/extract"
	"github.com/ironsheep/idcard-ocr/internal/logger"
	"github.com/ironsheep/idcard-ocr/internal/ocr"
	"github.com/ironsheep/idcard-ocr/internal/pipeline"
)

// Multipart field names for the two sides of the card.
const (
	FieldFront = "img1"
	FieldBack  = "img2"
)

const defaultMaxMemory = 32 << 20

// Extractor is the pipeline as the HTTP layer sees it.
type Extractor interface {
	Extract(ctx context.Context, front, back []byte) (extract.Record, error)
}

// Handler serves the extraction API.
type Handler struct {
	extractor      Extractor
	engine         func() ocr.EngineInfo
	maxUploadBytes int64
	version        string
	log            *logger.Logger
}

// NewHandler creates a handler. engine reports recognizer health for
// /health and may be nil.
func NewHandler(ex Extractor, engine func() ocr.EngineInfo, maxUploadBytes int64, version string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		extractor:      ex,
		engine:         engine,
		maxUploadBytes: maxUploadBytes,
		version:        version,
		log:            log.WithComponent("http"),
	}
}

// Extract handles POST /api/idcard
// Accepts multipart form with:
// - img1: photograph of the card front
// - img2: photograph of the card back
//
// Images are kept in memory only.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	maxMemory := h.maxUploadBytes
	if maxMemory <= 0 {
		maxMemory = defaultMaxMemory
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		msg := "request must be a multipart form with img1 and img2 files"
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			msg = fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit)
		}
		Error(w, &pipeline.Error{Kind: pipeline.KindInput, Stage: pipeline.StateAwaitingInputs, Message: msg, Err: err})
		return
	}
	defer r.MultipartForm.RemoveAll()

	front, err := formFile(r, FieldFront)
	if err != nil {
		Error(w, &pipeline.Error{Kind: pipeline.KindInput, Stage: pipeline.StateAwaitingInputs, Side: pipeline.SideFront, Message: "could not read front image", Err: err})
		return
	}
	back, err := formFile(r, FieldBack)
	if err != nil {
		Error(w, &pipeline.Error{Kind: pipeline.KindInput, Stage: pipeline.StateAwaitingInputs, Side: pipeline.SideBack, Message: "could not read back image", Err: err})
		return
	}

	rec, err := h.extractor.Extract(r.Context(), front, back)
	if err != nil {
		h.log.WithRequestID(GetRequestID(r.Context())).Info().
			Str("kind", string(pipeline.KindOf(err))).
			Msg("Extraction rejected")
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, rec)
}

// formFile reads a whole uploaded file. A missing field yields nil so the
// pipeline reports the missing side.
func formFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string          `json:"status"`
	Service string          `json:"service"`
	Version string          `json:"version"`
	Engine  *ocr.EngineInfo `json:"engine,omitempty"`
}

// Health handles GET /health. It answers 503 when the recognizer cannot start.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Service: "idcard-ocr", Version: h.version}
	status := http.StatusOK

	if h.engine != nil {
		info := h.engine()
		resp.Engine = &info
		if !info.Available {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	JSON(w, status, resp)
}
