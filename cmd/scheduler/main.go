package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/courseforge/backend/internal/bootstrap"
	"github.com/courseforge/backend/libs/config"
	"github.com/courseforge/backend/libs/logger"
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

	logger.Logger.Info("Starting resync scheduler")

	// Connect to database
	db, err := bootstrap.ConnectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	engine, err := bootstrap.NewEngine(context.Background(), cfg, db, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize engine", zap.Error(err))
	}
	defer engine.Close()

	scheduler, err := NewScheduler(cfg.Sync.ResyncSchedule, engine.Maintenance, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to create scheduler", zap.Error(err))
	}

	scheduler.Start()
	defer func() {
		logger.Logger.Info("Shutting down scheduler...")
		scheduler.Stop()
		logger.Logger.Info("Scheduler exited")
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
