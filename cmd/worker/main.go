package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/converter"
	"github.com/docvault/docvault/internal/database"
	"github.com/docvault/docvault/internal/document"
	"github.com/docvault/docvault/internal/events"
	"github.com/docvault/docvault/internal/mimedetect"
	"github.com/docvault/docvault/internal/queue"
	"github.com/docvault/docvault/internal/queue/workers"
	"github.com/docvault/docvault/internal/sources"
	"github.com/docvault/docvault/internal/storage"
	"github.com/docvault/docvault/migrations"
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

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store, err := newContentStore(cfg.Storage)
	if err != nil {
		slog.Error("failed to init content store", "error", err)
		os.Exit(1)
	}

	pageCache, err := document.NewPageCache(cfg.Cache.Path)
	if err != nil {
		slog.Error("failed to init page cache", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	types := document.NewPostgresDocumentTypeRepository(pool)
	documents := document.NewPostgresDocumentRepository(pool)
	versions := document.NewPostgresVersionRepository(pool)
	transformations := document.NewPostgresTransformationRepository(pool)
	sourceRepo := sources.NewPostgresRepository(pool)
	sourceLogs := sources.NewPostgresLogRepository(pool)

	conv := converter.NewBackend(cfg.Converter)
	detector := mimedetect.New()
	bus := events.NewBus()

	renderer := document.NewRenderer(versions, transformations, store, conv, pageCache,
		cfg.Documents.ZoomMin, cfg.Documents.ZoomMax)
	pipeline := document.NewPipeline(documents, versions, store, detector, conv, renderer, bus)

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	recent := document.NewRecentDocuments(redisClient, cfg.Documents.RecentCount)
	docSvc := document.NewService(types, documents, versions, transformations,
		store, renderer, queueClient, recent, bus, cfg.Documents.Language)
	sourceSvc := sources.NewService(sourceRepo, sourceLogs, docSvc, transformations)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeVersionCreate,
		asynq.HandlerFunc(workers.NewVersionWorker(pipeline).ProcessTask))
	registry.Register(queue.TypeSourceCheck,
		asynq.HandlerFunc(workers.NewSourceWorker(sourceSvc).ProcessTask))
	registry.Register(queue.TypeRetentionApply,
		asynq.HandlerFunc(workers.NewRetentionWorker(docSvc).ProcessTask))

	scheduler := queue.NewScheduler(cfg.Redis, sourceRepo)
	go func() {
		if err := scheduler.Run(ctx); err != nil {
			slog.Error("scheduler error", "error", err)
			os.Exit(1)
		}
	}()
	defer scheduler.Shutdown()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				queue.QueueUploads: 6,
				"default":          4,
			},
		},
	)

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency, "storage", cfg.Storage.Backend)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func newContentStore(cfg config.StorageConfig) (storage.ContentStore, error) {
	if cfg.Backend == "s3" {
		return storage.NewS3Store(cfg)
	}
	return storage.NewLocalStore(cfg.LocalPath)
}
