package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/nordquist/paperflow/internal/blobstore"
	"github.com/nordquist/paperflow/internal/config"
	"github.com/nordquist/paperflow/internal/database"
	"github.com/nordquist/paperflow/internal/extract"
	"github.com/nordquist/paperflow/internal/ocr"
	"github.com/nordquist/paperflow/internal/repository"
	"github.com/nordquist/paperflow/internal/worker"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}
	docs := repository.NewDocumentRepository(pool)
	results := repository.NewResultRepository(pool)

	blobs, err := blobstore.New(cfg)
	if err != nil {
		log.Error("init blob store", "error", err)
		os.Exit(1)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.Error("ensure bucket", "error", err)
		os.Exit(1)
	}

	var ocrProvider ocr.Provider
	if cfg.OCREnabled {
		ocrProvider = ocr.NewTesseract(cfg.OCRLanguage)
	}
	registry, err := extract.BuildRegistry(ocrProvider, ocr.Options{
		Language:          cfg.OCRLanguage,
		DetectOrientation: true,
		Preprocess:        true,
	}, log)
	if err != nil {
		log.Error("build registry", "error", err)
		os.Exit(1)
	}
	orchestrator := extract.NewOrchestrator(registry, log)
	log.Info("processors registered", "contentTypes", registry.ContentTypes())

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Concurrency,
	})
	processor := worker.NewProcessor(docs, results, blobs, orchestrator, log)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(processor.Handler()); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
