// Package main is the entry point for the ClassLens background worker.
//
// The worker owns the nightly classification batch: it pulls the course
// structure and student activity from the course platform API, extracts
// performance vectors, classifies students against the configured
// clusters and persists the aggregated statistics that the API serves.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/classlens/classlens/config"
	"github.com/classlens/classlens/internal/application/command"
	"github.com/classlens/classlens/internal/application/eventhandler"
	"github.com/classlens/classlens/internal/infrastructure/external/courseapi"
	"github.com/classlens/classlens/internal/infrastructure/messaging"
	"github.com/classlens/classlens/internal/infrastructure/persistence/postgres"
	"github.com/classlens/classlens/internal/infrastructure/persistence/redis"
	"github.com/classlens/classlens/internal/infrastructure/scheduler"
	"github.com/classlens/classlens/internal/infrastructure/scheduler/jobs"
	"github.com/classlens/classlens/pkg/retry"
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
	log := setupLogger(cfg)
	log.Info("starting ClassLens worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"course_id", cfg.Pipeline.CourseID,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	err = retry.DatabaseRetrier().Do(ctx, func(ctx context.Context) error {
		var connErr error
		dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional, report cache invalidation)
	// ─────────────────────────────────────────────────────────────────────────
	var reportCache *redis.ReportCache
	if !cfg.Redis.Disabled && cfg.Features.ReportCacheEnabled() {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, report caching disabled", "error", err)
		} else {
			defer redisCache.Close()
			reportCache = redis.NewReportCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	if reportCache != nil {
		invalidator := eventhandler.NewInvalidateReportCacheHandler(reportCache, log)
		if err := invalidator.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register cache invalidation handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. COURSE PLATFORM API CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing course API client...", "base_url", cfg.CourseAPI.BaseURL)
	clientConfig := courseapi.DefaultClientConfig(cfg.CourseAPI.BaseURL)
	clientConfig.APIKey = cfg.CourseAPI.APIKey
	clientConfig.Timeout = cfg.CourseAPI.RequestTimeout
	clientConfig.RateLimiterConfig.RequestsPerSecond = float64(cfg.CourseAPI.RateLimit)
	clientConfig.RateLimiterConfig.BurstSize = cfg.CourseAPI.RateLimitBurst
	clientConfig.CircuitBreakerConfig.FailureThreshold = cfg.CourseAPI.CircuitBreakerThreshold
	clientConfig.CircuitBreakerConfig.Timeout = cfg.CourseAPI.CircuitBreakerTimeout
	clientConfig.CircuitBreakerConfig.HalfOpenMaxRetries = cfg.CourseAPI.CircuitBreakerHalfOpenMax
	clientConfig.RetryConfig.MaxRetries = cfg.CourseAPI.MaxRetries
	clientConfig.RetryConfig.InitialBackoff = cfg.CourseAPI.RetryBaseDelay
	clientConfig.RetryConfig.MaxBackoff = cfg.CourseAPI.RetryMaxDelay
	clientConfig.Logger = log
	clientConfig.Debug = cfg.App.Debug
	courseClient := courseapi.NewClient(clientConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES AND PIPELINE HANDLER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	clusterRepo := postgres.NewClusterRepository(dbConn)
	vectorRepo := postgres.NewVectorRepository(dbConn)
	classificationRepo := postgres.NewClassificationRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)

	pipelineConfig := command.DefaultRunPipelineConfig()
	pipelineConfig.MaxDistance = cfg.Pipeline.MaxDistance
	pipelineConfig.Concurrency = cfg.Pipeline.Concurrency
	pipelineConfig.Timeout = cfg.Pipeline.Timeout
	pipelineConfig.EmitIntersections = cfg.Features.IntersectionsEnabled(cfg.Pipeline.CourseID)

	pipelineHandler := command.NewRunPipelineHandler(
		courseClient,
		courseClient,
		clusterRepo,
		vectorRepo,
		classificationRepo,
		statsRepo,
		eventBus,
		log,
		pipelineConfig,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, worker will idle until terminated")
	}

	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	sched := scheduler.NewScheduler(schedConfig)

	if cfg.Scheduler.Enabled {
		batchJob := jobs.NewRunPipelineJob(pipelineHandler, cfg.Pipeline.CourseID, log)
		schedule, err := batchSchedule(cfg.Scheduler)
		if err != nil {
			return fmt.Errorf("invalid batch schedule: %w", err)
		}
		if err := sched.Register(batchJob, schedule); err != nil {
			return fmt.Errorf("failed to register batch job: %w", err)
		}
		log.Info("registered classification batch",
			"job", batchJob.Name(),
			"schedule", schedule.String(),
		)

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("ClassLens worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	return nil
}

// batchSchedule picks the run cadence for the classification batch:
// a fixed interval (development), a cron expression, or the default
// nightly batch time. All cadences are evaluated in UTC.
func batchSchedule(cfg config.SchedulerConfig) (scheduler.Schedule, error) {
	switch {
	case cfg.Interval > 0:
		return scheduler.NewIntervalSchedule(cfg.Interval), nil
	case cfg.Cron != "":
		return scheduler.NewCronSchedule(cfg.Cron, nil)
	default:
		return scheduler.NewDailySchedule(cfg.BatchHour, cfg.BatchMinute, nil), nil
	}
}

// setupLogger configures structured logging from the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
