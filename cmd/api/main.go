package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/courseforge/backend/docs"
	"github.com/courseforge/backend/internal/bootstrap"
	"github.com/courseforge/backend/internal/handlers"
	"github.com/courseforge/backend/libs/auth/middleware"
	"github.com/courseforge/backend/libs/auth/service"
	"github.com/courseforge/backend/libs/config"
	"github.com/courseforge/backend/libs/logger"
	loggerMiddleware "github.com/courseforge/backend/libs/logger/middleware"
	sharedMiddleware "github.com/courseforge/backend/libs/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title CourseForge Course Structure API
// @version 1.0
// @description Course, module and lesson editing with automatic syllabus synchronization

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for service-to-service maintenance calls
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Tutor role or higher is required for admin endpoints.
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

	logger.Logger.Info("Starting Course API")

	// Connect to database
	db, err := bootstrap.ConnectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := bootstrap.RunMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	engine, err := bootstrap.NewEngine(context.Background(), cfg, db, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize engine", zap.Error(err))
	}
	defer engine.Close()

	tokenGenerator := service.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize handlers
	courseHandler := handlers.NewCourseHandler(engine.Courses, logger.Logger)
	moduleHandler := handlers.NewModuleHandler(engine.Modules, logger.Logger)
	lessonHandler := handlers.NewLessonHandler(engine.Lessons, logger.Logger)
	maintenanceHandler := handlers.NewMaintenanceHandler(engine.Maintenance, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(1024 * 1024)) // 1MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	r.Route("/api/v1", func(r chi.Router) {
		courseHandler.RegisterPublicRoutes(r)

		// Structural edits (tutor role or higher, ownership checked per course)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RoleMiddleware(tokenGenerator, service.RoleTutor))
			courseHandler.RegisterRoutes(r)
			moduleHandler.RegisterRoutes(r)
			lessonHandler.RegisterRoutes(r)
			maintenanceHandler.RegisterRoutes(r)
		})

		// Service-to-service maintenance (API key)
		r.Route("/internal", func(r chi.Router) {
			r.Use(middleware.APIKeyMiddleware(cfg.APIKey))
			maintenanceHandler.RegisterInternalRoutes(r)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
