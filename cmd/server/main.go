// Package main is the entry point for the KodeFun progression service.
//
// The service owns the learner's journey through the course catalog: the
// score ledger, the course state machine, unlock propagation and achievement
// awards. Authentication and content delivery live in the surrounding web
// platform; this process exposes the progression REST API.
//
// Layering follows Clean Architecture and DDD:
// - Domain: progression rules with zero external dependencies
// - Application: use case orchestration (Commands/Queries/Sagas)
// - Infrastructure: PostgreSQL, Redis, in-process event bus
// - Interface: HTTP handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kodefun/kodefun-platform/config"
	"github.com/kodefun/kodefun-platform/internal/application/command"
	"github.com/kodefun/kodefun-platform/internal/application/port"
	"github.com/kodefun/kodefun-platform/internal/application/query"
	"github.com/kodefun/kodefun-platform/internal/application/saga"
	"github.com/kodefun/kodefun-platform/internal/domain/learner"
	"github.com/kodefun/kodefun-platform/internal/domain/shared"
	"github.com/kodefun/kodefun-platform/internal/infrastructure/messaging"
	"github.com/kodefun/kodefun-platform/internal/infrastructure/persistence/postgres"
	"github.com/kodefun/kodefun-platform/internal/infrastructure/persistence/redis"
	"github.com/kodefun/kodefun-platform/internal/infrastructure/scheduler"
	"github.com/kodefun/kodefun-platform/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/kodefun/kodefun-platform/internal/interface/http"
	"github.com/kodefun/kodefun-platform/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting KodeFun progression service",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("debug", cfg.App.Debug),
		logger.String("version", cfg.App.Version),
	)

	for name, feature := range cfg.Features.GetAllFeatures() {
		log.Debug("feature flag", logger.String("name", name), logger.Bool("enabled", feature.Enabled))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	dbConn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.MigrateOnStart {
		log.Info("running database migrations")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		applied, err := migrator.GetAppliedMigrations(ctx)
		if err != nil {
			log.Warn("failed to read migration status", logger.Err(err))
		} else {
			log.Info("migrations completed", logger.Int("applied", len(applied)))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var leaderboardCache query.LeaderboardCache
	var sessionNotifier port.SessionNotifier = noopSessionNotifier{}
	healthCheckers := map[string]httpserver.HealthChecker{
		"postgres": dbConn,
	}

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache, log)
			sessionNotifier = redis.NewSessionCache(redisCache)
			healthCheckers["redis"] = redisCache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.Observability.LogLevel),
	}))
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	// Audit trail of everything the engine announces.
	_ = eventBus.SubscribeAll(func(event shared.Event) error {
		log.Info("domain event",
			logger.String("type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Any("payload", event.Payload()),
		)
		return nil
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	uow := postgres.NewUnitOfWork(dbConn)
	idGen := uuidGenerator{}
	policy := learner.ProgressionPolicy{
		PassThreshold: cfg.Engine.PassThreshold,
		MaxAttempts:   cfg.Engine.MaxAttempts,
		CompletionXP:  learner.XP(cfg.Engine.CompletionXP),
	}

	registerHandler := command.NewRegisterLearnerHandler(uow, idGen, log)
	initProgressHandler := command.NewInitializeTrackProgressHandler(uow, idGen, log)
	submitScoreHandler := command.NewSubmitComponentScoreHandler(uow, eventBus, log)
	completionFlow := saga.NewCompletionFlowSaga(uow, eventBus, sessionNotifier, idGen, policy, log)

	getProgressHandler := query.NewGetProgressHandler(uow.Store())
	getTrackCoursesHandler := query.NewGetTrackCoursesHandler(uow.Store())
	getLeaderboardHandler := query.NewGetLeaderboardHandler(uow.Store(), leaderboardCache, log)
	listAchievementsHandler := query.NewListAchievementsHandler(uow.Store())

	// ─────────────────────────────────────────────────────────────────────────
	// 8. BACKGROUND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	jobScheduler := scheduler.NewScheduler(scheduler.Config{Logger: busConfig.Logger})

	auditJob := jobs.NewAuditCatalogJob(uow.Store().Catalog(), busConfig.Logger, 2*time.Minute)
	if err := jobScheduler.Register(auditJob, scheduler.NewDailySchedule(3, 0)); err != nil {
		return fmt.Errorf("failed to register audit job: %w", err)
	}

	if leaderboardCache != nil {
		warmJob := jobs.NewWarmLeaderboardJob(uow.Store(), leaderboardCache, busConfig.Logger, jobs.DefaultWarmLeaderboardConfig())
		if err := jobScheduler.Register(warmJob, scheduler.NewIntervalSchedule(time.Minute)); err != nil {
			return fmt.Errorf("failed to register warm job: %w", err)
		}
	}

	if err := jobScheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		log.Info("stopping scheduler")
		_ = jobScheduler.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		RegisterLearner:    registerHandler,
		InitializeProgress: initProgressHandler,
		SubmitScore:        submitScoreHandler,
		CompletionFlow:     completionFlow,
		GetProgress:        getProgressHandler,
		GetTrackCourses:    getTrackCoursesHandler,
		GetLeaderboard:     getLeaderboardHandler,
		ListAchievements:   listAchievementsHandler,
		Logger:             log,
		HealthCheckers:     healthCheckers,
	})

	errCh := server.StartAsync()
	log.Info("HTTP server listening", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.Err(err))
		return err
	}

	log.Info("shutdown complete")
	return nil
}

// uuidGenerator issues UUIDv4 identifiers for new entities.
type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// noopSessionNotifier is used when Redis is disabled: the engine still
// returns XP totals in responses, there is just no session mirror.
type noopSessionNotifier struct{}

func (noopSessionNotifier) NotifyXPChanged(ctx context.Context, learnerID string, newTotal int) error {
	return nil
}

// slogLevel maps the configured log level onto the event bus logger.
func slogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
