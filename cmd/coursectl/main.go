package main

import (
	"context"
	"fmt"
	"os"

	"github.com/courseforge/backend/internal/bootstrap"
	"github.com/courseforge/backend/internal/handlers"
	"github.com/courseforge/backend/libs/config"
	"github.com/courseforge/backend/libs/logger"
)

func main() {
	cmd := NewRootCommand(openEngine)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openEngine connects to the configured database and Redis
func openEngine(ctx context.Context) (handlers.MaintenanceService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := bootstrap.ConnectDB(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	engine, err := bootstrap.NewEngine(ctx, cfg, db, logger.Logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return engine.Maintenance, func() {
		engine.Close()
		db.Close()
		logger.Sync()
	}, nil
}
