// Package bootstrap wires the synchronization engine for the binaries under cmd/
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/courseforge/backend/internal/cache"
	"github.com/courseforge/backend/internal/handlers"
	"github.com/courseforge/backend/internal/media"
	"github.com/courseforge/backend/internal/repositories"
	"github.com/courseforge/backend/internal/services"
	"github.com/courseforge/backend/internal/tasks"
	"github.com/courseforge/backend/libs/config"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Engine holds the services of the synchronization engine
type Engine struct {
	Lessons     handlers.LessonService
	Modules     handlers.ModuleService
	Courses     handlers.CourseService
	Maintenance handlers.MaintenanceService

	closers []func()
}

// Close releases Redis connections and waits for in-process cleanups
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// ConnectDB connects to the database
func ConnectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// RunMigrations applies the schema migrations
func RunMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "course_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RedisClientOpt returns the asynq connection options for the configured Redis
func RedisClientOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// NewCleaner picks the media cleaner: the remote media service when configured,
// otherwise local storage. It returns nil when neither is configured.
func NewCleaner(cfg *config.Config, logger *zap.Logger) media.Cleaner {
	switch {
	case cfg.Media.RemoteURL != "":
		return media.NewRemoteCleaner(cfg.Media.RemoteURL, cfg.Media.BaseURL, cfg.APIKey, logger)
	case cfg.Media.BasePath != "":
		return media.NewStorageCleaner(cfg.Media.BasePath, cfg.Media.BaseURL, logger)
	default:
		return nil
	}
}

// NewEngine builds repositories and services over db.
//
// With Redis enabled, media cleanup goes through the asynq queue and course
// aggregates are cached; otherwise cleanup runs in-process and nothing is cached.
func NewEngine(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (*Engine, error) {
	engine := &Engine{}

	courseRepo := repositories.NewCourseRepository(db)
	moduleRepo := repositories.NewModuleRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)
	transactor := repositories.NewTransactor(db)

	var (
		cleanup     services.CleanupScheduler
		invalidator services.CacheInvalidator
		readCache   services.CourseReadCache
	)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		engine.closers = append(engine.closers, func() { rdb.Close() })

		courseCache := cache.NewCourseCache(rdb, logger)
		invalidator, readCache = courseCache, courseCache

		asynqClient := asynq.NewClient(RedisClientOpt(cfg))
		engine.closers = append(engine.closers, func() { asynqClient.Close() })
		cleanup = tasks.NewQueueScheduler(asynqClient, logger)
	} else if cleaner := NewCleaner(cfg, logger); cleaner != nil {
		inline := tasks.NewInlineScheduler(cleaner, logger)
		engine.closers = append(engine.closers, inline.Wait)
		cleanup = inline
	} else {
		logger.Warn("no media storage configured, orphaned videos will not be removed")
	}

	syllabus := services.NewSyllabusService(courseRepo, moduleRepo, lessonRepo, cfg.Sync.RebuildMaxAttempts, logger)
	postCommit := services.NewPostCommit(syllabus, cleanup, invalidator, logger)

	engine.Lessons = services.NewLessonService(transactor, courseRepo, moduleRepo, lessonRepo, postCommit, cfg.Sync.CountersFastPath, logger)
	engine.Modules = services.NewModuleService(transactor, courseRepo, moduleRepo, lessonRepo, postCommit, logger)
	engine.Courses = services.NewCourseService(courseRepo, readCache, logger)
	engine.Maintenance = services.NewMaintenanceService(courseRepo, syllabus, invalidator, logger)

	return engine, nil
}
