package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/sdocherty/docflow/internal/config"
	"github.com/sdocherty/docflow/internal/database"
	"github.com/sdocherty/docflow/internal/extraction"
	"github.com/sdocherty/docflow/internal/metadata"
	"github.com/sdocherty/docflow/internal/notify"
	"github.com/sdocherty/docflow/internal/pipeline"
	"github.com/sdocherty/docflow/internal/queue"
	"github.com/sdocherty/docflow/internal/queue/workers"
	"github.com/sdocherty/docflow/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	store := metadata.NewPostgresStore(db)
	blobs := storage.NewSupabaseStore(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	mover := storage.NewMover(blobs, cfg.Storage.ProcessedBucket, cfg.Storage.FailedBucket)
	extractor := extraction.New(cfg.Extraction)
	publisher := notify.NewQueuePublisher(cfg.Redis, cfg.Pipeline.CompletionQueue)
	defer publisher.Close()

	orch := pipeline.NewOrchestrator(store, blobs, mover, extractor, publisher, cfg.Pipeline.MaxDocumentSizeMB)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeDocumentProcess, asynq.HandlerFunc(workers.NewDocumentWorker(orch).ProcessTask))

	slog.Info("starting worker", "concurrency", 10, "mock_extraction", cfg.Extraction.MockMode)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
