package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mpetrie/taskboard-api/internal/cache"
	"github.com/mpetrie/taskboard-api/internal/config"
	"github.com/mpetrie/taskboard-api/internal/events"
	"github.com/mpetrie/taskboard-api/internal/platform/postgres"
	"github.com/mpetrie/taskboard-api/internal/platform/rediscache"
	"github.com/mpetrie/taskboard-api/internal/service"
	"github.com/mpetrie/taskboard-api/internal/service/auth"
	"github.com/mpetrie/taskboard-api/internal/store"
	"github.com/mpetrie/taskboard-api/internal/ws"
)

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db         *sql.DB
	redisStore *rediscache.Store

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier

	sessionCache  *cache.SessionCache
	taskListCache *cache.TaskListCache

	taskService *service.TaskService

	eventEmitter events.EventEmitter
	hub          *ws.Hub
}

// newApplication creates an application instance with all dependencies
// initialized: database (with migrations applied), Redis, stores, caches,
// auth services, the task service, and the websocket hub.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}
	app.db = db

	if err := runMigrations(ctx, db, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app.redisStore, err = rediscache.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Redis connection established", "addr", cfg.Redis.Addr)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordHasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Session lifetime tracks token lifetime so a cached session never
	// outlives the token it authorizes.
	app.sessionCache = cache.NewSessionCache(app.redisStore, cfg.Auth.TokenLifetime())
	app.taskListCache = cache.NewTaskListCache(
		app.redisStore, cfg.Redis.ListingCacheTTL(), logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.hub = ws.NewHub(logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(app.hub)
	}

	app.taskService = service.NewTaskService(
		app.taskStore,
		app.userStore,
		app.taskListCache,
		app.eventEmitter,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the websocket hub and HTTP server, blocking until shutdown.
func (app *application) Run(ctx context.Context) error {
	go app.hub.Run(ctx)

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.redisStore != nil {
		if err := app.redisStore.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
