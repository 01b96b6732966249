package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/bootstrap"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/handler"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/database"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/logger"
	"github.com/common-nighthawk/go-figure"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// @title Review Reply API
// @version 1.0
// @description Review sync, manual replies and auto-reply jobs
// @BasePath /api/v1
// @schemes http https

type Application struct {
	config *Config
	db     *gorm.DB
	redis  *redis.Client
	logger *slog.Logger
	server *http.Server
	engine *bootstrap.Engine
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	applicationLogger := logger.SetupLoggerWithFile(cfg.Logging.Level, logger.FileOptions{
		Path:       cfg.Logging.OutputFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	app, err := NewApplication(cfg, applicationLogger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func NewApplication(cfg *Config, applicationLogger *slog.Logger) (*Application, error) {
	db, err := database.GormOpenWithPool(cfg.Database.DSN(), database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConnections,
		ConnMaxLifetime: cfg.Database.ConnMaxLife,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db, database.OwnedEntities()...); err != nil {
			return nil, err
		}
	}

	applicationLogger.Info("Connecting to Redis", "address", cfg.Redis.Address())
	redisClient := bootstrap.NewRedisClient(cfg.Redis)

	engine, err := bootstrap.NewEngine(context.Background(), db, redisClient, cfg.Redis, cfg.Domain, applicationLogger)
	if err != nil {
		return nil, err
	}

	reviewHandler := handler.NewReviewHandler(engine.StateMachine, engine.Syncs, engine.Policy, applicationLogger)
	printRoutes(reviewHandler, applicationLogger)

	server := &http.Server{
		Addr: cfg.Server.Address(),
		Handler: handler.NewRouter(reviewHandler, handler.RouterOptions{
			EnableCORS:        cfg.Server.EnableCORS,
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			RequestsPerMinute: cfg.RequestsPerMinute,
			TrustedProxies:    cfg.TrustedProxies,
		}, applicationLogger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		config: cfg,
		db:     db,
		redis:  redisClient,
		logger: applicationLogger,
		server: server,
		engine: engine,
	}, nil
}

func (app *Application) Start() error {
	ctx := context.Background()

	app.logger.Info("Starting review reply API", "address", app.config.Server.Address())

	if err := app.performHealthChecks(ctx); err != nil {
		app.logger.Error("Health checks failed", "error", err)
		return err
	}

	go func() {
		figure.NewFigure("API", "", true).Print()
		fmt.Println("")
		fmt.Println("Review reply API started at " + app.config.Server.Address())
		fmt.Println("")
		if err := app.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("HTTP server failed", "error", err)
		}
	}()

	app.waitForShutdown()
	return nil
}

func (app *Application) performHealthChecks(ctx context.Context) error {
	app.logger.Info("Performing health checks")

	if err := database.Ping(app.db); err != nil {
		return err
	}

	// Without redis every sync fails to lock; the API still serves replies.
	if err := app.engine.Locker.Ping(ctx); err != nil {
		app.logger.Warn("Redis health check failed", "error", err)
	}
	return nil
}

func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	app.logger.Info("Shutting down server...")

	shutdownTimeout := app.config.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("Server forced to shutdown", "error", err)
	}

	if sqlDB, err := app.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			app.logger.Error("Error closing database", "error", err)
		}
	}

	if err := app.engine.Close(); err != nil {
		app.logger.Error("Error closing engine", "error", err)
	}

	app.logger.Info("Server stopped gracefully")
}

var routeDescriptions = []struct {
	fragment    string
	description string
}{
	{"/health", "Health check endpoint"},
	{"/sync", "Sync reviews"},
	{"/reply", "Submit a manual reply"},
	{"/reject", "Reject the pending reply"},
	{"/approve", "Approve a drafted reply"},
	{"/auto-reply", "Run an auto-reply sweep"},
}

func printRoutes(h *handler.ReviewHandler, logger *slog.Logger) {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	fmt.Println("API Routes Overview")
	fmt.Println("═══════════════════════════════════════════════════════════════")

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}

		description := "API endpoint"
		for _, d := range routeDescriptions {
			if strings.HasSuffix(pathTemplate, d.fragment) {
				description = d.description
				break
			}
		}
		fmt.Printf("  %-8s %s - %s\n", strings.Join(methods, ", "), pathTemplate, description)
		return nil
	})
	if err != nil {
		logger.Error("Error walking routes", "error", err)
	}
	fmt.Println("  GET      /metrics - Prometheus metrics")
	fmt.Println("═══════════════════════════════════════════════════════════════")
}
