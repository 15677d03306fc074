package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/config"
	"github.com/querylens/querylens-engine/pkg/database"
	"github.com/querylens/querylens-engine/pkg/handlers"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/logging"
	"github.com/querylens/querylens-engine/pkg/middleware"
	"github.com/querylens/querylens-engine/pkg/repositories"
	"github.com/querylens/querylens-engine/pkg/retry"
	"github.com/querylens/querylens-engine/pkg/services"
	"github.com/querylens/querylens-engine/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("ai_configured", cfg.AI.IsAvailable()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run over database/sql; the application pool is pgx.
	// RunMigrations closes the connection when it finishes.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	objectStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create object store", zap.Error(err))
	}

	var llmClient llm.LLMClient
	if cfg.AI.IsAvailable() {
		client, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.AI.BaseURL,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create LLM client", zap.Error(err))
		}
		llmClient = client
	} else {
		logger.Warn("No AI endpoint configured; query and insight generation are disabled")
	}

	datasetRepo := repositories.NewDatasetRepository(db)
	queryRepo := repositories.NewQueryRepository(db)
	insightRepo := repositories.NewInsightRepository(db)

	datasetSvc := services.NewDatasetService(datasetRepo, objectStore, cfg.Limits.MaxUploadBytes, logger)
	results := services.NewResultStore(cfg.Limits.ResultTTL())
	defer results.Stop()
	querySvc := services.NewQueryService(
		queryRepo, datasetSvc,
		services.NewQueryGenerator(llmClient, logger),
		results, logger,
	)
	pool := llm.NewWorkerPool(llm.DefaultWorkerPoolConfig(), logger)
	insightSvc := services.NewInsightService(
		insightRepo,
		services.NewInsightGenerator(llmClient, logger),
		pool, cfg.Limits.MaxInsightsPerDataset, logger,
	)

	sweeper := services.NewInsightSweeper(
		datasetRepo, insightRepo, datasetSvc, insightSvc,
		time.Duration(cfg.Jobs.InsightSweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.Jobs.InsightRecencyHours)*time.Hour,
		logger,
	)
	cleanup := services.NewCleanupJob(
		datasetRepo, queryRepo, insightRepo, datasetSvc,
		time.Duration(cfg.Jobs.CleanupIntervalHours)*time.Hour,
		time.Duration(cfg.Jobs.FailedDatasetRetentionDays)*24*time.Hour,
		time.Duration(cfg.Jobs.ResultRetentionDays)*24*time.Hour,
		logger,
	)
	if llmClient != nil {
		go sweeper.Run(ctx)
	}
	go cleanup.Run(ctx)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatasetHandler(datasetSvc, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(querySvc, logger).RegisterRoutes(mux)
	handlers.NewInsightHandler(insightSvc, datasetSvc, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting querylens-engine",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.Storage.Backend == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
	}
	return storage.NewFilesystemStore(cfg.Storage.Root)
}
