package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/courseforge/backend/internal/bootstrap"
	"github.com/courseforge/backend/internal/tasks"
	"github.com/courseforge/backend/libs/config"
	"github.com/courseforge/backend/libs/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting media cleanup worker")

	if !cfg.Redis.Enabled {
		logger.Logger.Fatal("REDIS_HOST is required for the worker")
	}

	cleaner := bootstrap.NewCleaner(cfg, logger.Logger)
	if cleaner == nil {
		logger.Logger.Fatal("MEDIA_SERVICE_URL or MEDIA_BASE_PATH is required for the worker")
	}

	srv := asynq.NewServer(
		bootstrap.RedisClientOpt(cfg),
		asynq.Config{
			Queues: map[string]int{
				tasks.QueueCleanup: 1,
			},
			Concurrency: 4,
			Logger:      logger.Logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeMediaCleanup, tasks.NewMediaCleanupHandler(cleaner, logger.Logger))

	if err := srv.Start(mux); err != nil {
		logger.Logger.Fatal("Failed to start worker", zap.Error(err))
	}

	logger.Logger.Info("Worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	srv.Shutdown()
	logger.Logger.Info("Worker exited")
}
