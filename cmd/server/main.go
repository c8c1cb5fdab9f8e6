package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/nordquist/paperflow/internal/api"
	"github.com/nordquist/paperflow/internal/blobstore"
	"github.com/nordquist/paperflow/internal/config"
	"github.com/nordquist/paperflow/internal/database"
	"github.com/nordquist/paperflow/internal/ingest"
	"github.com/nordquist/paperflow/internal/queue"
	"github.com/nordquist/paperflow/internal/repository"
	"github.com/nordquist/paperflow/internal/validation"
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

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()
	scheduler := queue.NewScheduler(client)

	validator := validation.New(cfg.MaxFileSize, cfg.AllowedTypes)
	ingester := ingest.New(docs, blobs, scheduler, validator, cfg.MaxQueueDepth, log)

	srv := api.New(cfg, ingester, docs, results, blobs, scheduler, log)
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
