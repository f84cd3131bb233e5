package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ironsheep/idcard-ocr/internal/config"
	"github.com/ironsheep/idcard-ocr/internal/httpapi"
	"github.com/ironsheep/idcard-ocr/internal/imaging"
	"github.com/ironsheep/idcard-ocr/internal/logger"
	"github.com/ironsheep/idcard-ocr/internal/ocr"
	"github.com/ironsheep/idcard-ocr/internal/pipeline"
	"github.com/ironsheep/idcard-ocr/internal/server"
)

const serviceName = "idcard-ocr"

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Printf("idcard-ocr %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage()
		return
	case "", "mcp", "serve", "extract":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logs always go to stderr: stdout carries MCP traffic or extract output.
	log := logger.New(serviceName, cfg.Server.Environment, os.Stderr).SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = runHTTP(ctx, cfg, log)
	case "extract":
		if len(os.Args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: idcard-ocr extract <front-image> <back-image>")
			os.Exit(2)
		}
		err = runExtract(ctx, cfg, log, os.Args[2], os.Args[3])
	default:
		err = runMCP(ctx, cfg, log)
	}
	if err != nil {
		log.Error().Err(err).Msg("Exiting")
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("idcard-ocr - identity card text extraction")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  idcard-ocr                          Run the MCP server over stdin/stdout")
	fmt.Println("  idcard-ocr serve                    Run the HTTP API")
	fmt.Println("  idcard-ocr extract <front> <back>   Extract one card and print the record as JSON")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  IDCARD_LOG_LEVEL=debug           Enable debug logging")
	fmt.Println("  IDCARD_OCR_ENGINE=vision         Use Google Cloud Vision instead of Tesseract")
	fmt.Println("  IDCARD_OCR_TESSDATA_PREFIX=dir   Directory holding *.traineddata")
	fmt.Println("  IDCARD_SERVER_PORT=3001          HTTP listen port")
	fmt.Println()
	fmt.Println("Settings may also be read from ./config/idcard-ocr.yaml or a .env file.")
}

// components holds everything the three commands share.
type components struct {
	pipeline     *pipeline.Pipeline
	preprocessor *imaging.Preprocessor
	recognizer   ocr.Recognizer
}

func build(cfg *config.Config, log *logger.Logger, metrics *pipeline.Metrics) (*components, error) {
	rec, err := ocr.New(cfg.OCR)
	if err != nil {
		return nil, err
	}

	info := ocr.Info(rec)
	ev := log.Info()
	if !info.Available {
		ev = log.Warn().Str("engine_error", info.Error)
	}
	ev.Str("engine", info.Engine).Str("engine_version", info.Version).Msg("Recognition engine selected")

	pre := imaging.NewPreprocessor(imaging.OptionsFromConfig(cfg.Preprocess))
	opts := []pipeline.Option{pipeline.WithLogger(log), pipeline.WithMetrics(metrics)}
	if cfg.Preprocess.Enabled {
		opts = append(opts, pipeline.WithPreprocessor(pre))
	}

	return &components{
		pipeline:     pipeline.New(rec, pipeline.OptionsFromConfig(cfg), opts...),
		preprocessor: pre,
		recognizer:   rec,
	}, nil
}

func runMCP(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Debug().Str("version", Version).Str("build_time", BuildTime).Str("commit", GitCommit).Msg("Starting MCP server")

	c, err := build(cfg, log, nil)
	if err != nil {
		return err
	}
	return server.New(c.pipeline, c.preprocessor, log, Version).Run(ctx)
}

func runHTTP(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := build(cfg, log, pipeline.NewMetrics(reg))
	if err != nil {
		return err
	}
	// A server that can only answer 503 should not start.
	if err := ocr.Check(c.recognizer); err != nil {
		return err
	}

	h := httpapi.NewHandler(c.pipeline, func() ocr.EngineInfo { return ocr.Info(c.recognizer) },
		cfg.Server.MaxUploadBytes, Version, log)
	srv := httpapi.NewServer(cfg.Server, httpapi.NewRouter(h, cfg.Server, reg, log))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

// runExtract prints the record, or the error body with a non-zero exit.
func runExtract(ctx context.Context, cfg *config.Config, log *logger.Logger, frontPath, backPath string) error {
	c, err := build(cfg, log, nil)
	if err != nil {
		return err
	}

	front, err := imaging.ReadFile(frontPath)
	if err != nil {
		return err
	}
	back, err := imaging.ReadFile(backPath)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	rec, err := c.pipeline.Extract(ctx, front, back)
	if err != nil {
		_, body := httpapi.NewErrorResponse(err)
		_ = enc.Encode(body)
		return err
	}
	return enc.Encode(rec)
}
