package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/neuralscale/enhancer/internal/analysis"
	mediahandler "github.com/neuralscale/enhancer/internal/api/handlers/media"
	"github.com/neuralscale/enhancer/internal/api/router"
	"github.com/neuralscale/enhancer/internal/api/server"
	"github.com/neuralscale/enhancer/internal/config"
	"github.com/neuralscale/enhancer/internal/convert"
	"github.com/neuralscale/enhancer/internal/enhance"
	"github.com/neuralscale/enhancer/internal/events"
	"github.com/neuralscale/enhancer/internal/media"
	"github.com/neuralscale/enhancer/internal/pipeline"
	"github.com/neuralscale/enhancer/internal/preview"
	mediasvc "github.com/neuralscale/enhancer/internal/service/media"
	"github.com/neuralscale/enhancer/internal/storage/file"
	"github.com/neuralscale/enhancer/internal/store"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Retry strategy for Kafka and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize file storage (MinIO).
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// The in-memory item store: the single source of truth for item state.
	items := store.New()

	// Optional Kafka publisher for item lifecycle events.
	var publisher *events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.New(&cfg.Kafka, strategy)
		sub := items.Subscribe(256)
		go publisher.Run(ctx, sub)
	}

	// Collaborators and the pipeline core.
	analyzer := analysis.NewClient(cfg.Analysis.APIKey, cfg.Analysis.BaseURL, cfg.Analysis.Model)
	upscaler := enhance.New(storage, cfg.Enhance.BaseDelay, cfg.Enhance.StepDelay)
	orchestrator := pipeline.New(analyzer, upscaler, storage, items, cfg.Pipeline.MaxConcurrent)

	// Admission, conversion, and the service layer.
	validator := media.NewValidator(storage, preview.NewRenderer(), cfg.Upload.MaxFileSize)
	converter := convert.New(storage)
	service := mediasvc.NewService(validator, orchestrator, converter, storage, items)

	// HTTP handler for media routes.
	handler := mediahandler.NewHandler(service)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(handler)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Let in-flight pipelines reach a terminal state.
	orchestrator.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close the Kafka producer client.
	if publisher != nil {
		if err := publisher.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
}
