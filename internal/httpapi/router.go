// Package httpapi is the HTTP boundary of the extraction service.
//
// Routes:
//
//	POST /api/idcard   multipart upload, img1 = front, img2 = back
//	GET  /health       service and recognizer status
//	GET  /metrics      Prometheus exposition
//
// A successful extraction answers 200 with the record. Failures answer
// with the status of the error kind and an ErrorResponse body.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/idcard-ocr/internal/config"
	"github.com/ironsheep/idcard-ocr/internal/logger"
)

// NewRouter wires h and the metrics registry into a chi router.
func NewRouter(h *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Post("/api/idcard", h.Extract)

	return r
}

// NewServer builds the http.Server for cfg.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
