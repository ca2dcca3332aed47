// Package main is the entry point for the ClassLens API server.
//
// The API serves the read side of the system: cluster definitions, the
// statistics report of the latest classification batch and per-student
// classification lookups. It also exposes administrative endpoints for
// editing clusters and triggering an out-of-schedule batch run.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, external APIs
// - Interface: HTTP endpoints
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
	"github.com/classlens/classlens/internal/application/query"
	"github.com/classlens/classlens/internal/infrastructure/external/courseapi"
	"github.com/classlens/classlens/internal/infrastructure/messaging"
	"github.com/classlens/classlens/internal/infrastructure/persistence/postgres"
	"github.com/classlens/classlens/internal/infrastructure/persistence/redis"
	httpserver "github.com/classlens/classlens/internal/interface/http"
	"github.com/classlens/classlens/internal/interface/http/handlers"
	"github.com/classlens/classlens/pkg/logger"
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
	log.Info("starting ClassLens API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	httpLog := logger.Default()
	if cfg.App.Debug {
		httpLog = httpLog.WithLevel(logger.LevelDebug)
	}

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
	defer dbConn.Close()

	// Migrations are idempotent, both binaries run them at startup
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional, report cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var reportCache *redis.ReportCache
	if !cfg.Redis.Disabled && cfg.Features.ReportCacheEnabled() {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, report caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			reportCache = redis.NewReportCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() { _ = eventBus.Close() }()

	if reportCache != nil {
		invalidator := eventhandler.NewInvalidateReportCacheHandler(reportCache, log)
		if err := invalidator.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register cache invalidation handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. COURSE PLATFORM API CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	clientConfig := courseapi.DefaultClientConfig(cfg.CourseAPI.BaseURL)
	clientConfig.APIKey = cfg.CourseAPI.APIKey
	clientConfig.Timeout = cfg.CourseAPI.RequestTimeout
	clientConfig.Logger = log
	clientConfig.Debug = cfg.App.Debug
	courseClient := courseapi.NewClient(clientConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES, QUERIES AND COMMANDS
	// ─────────────────────────────────────────────────────────────────────────
	clusterRepo := postgres.NewClusterRepository(dbConn)
	vectorRepo := postgres.NewVectorRepository(dbConn)
	classificationRepo := postgres.NewClassificationRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)

	var statsCache query.ReportCache
	if reportCache != nil {
		statsCache = reportCache
	}

	listClusters := query.NewListClustersHandler(clusterRepo, log)
	getStatistics := query.NewGetStatisticsHandler(statsRepo, clusterRepo, statsCache, cfg.Pipeline.ReportCacheTTL, log)
	getClassification := query.NewGetStudentClassificationHandler(classificationRepo, clusterRepo, vectorRepo, log)
	listDimensions := query.NewListDimensionsHandler(courseClient, log)

	saveCluster := command.NewSaveClusterHandler(clusterRepo, eventBus)
	deleteCluster := command.NewDeleteClusterHandler(clusterRepo, eventBus)

	var runPipeline *command.RunPipelineHandler
	if cfg.Features.IsEnabled(config.FeaturePipelineHTTPTrigger, nil) {
		pipelineConfig := command.DefaultRunPipelineConfig()
		pipelineConfig.MaxDistance = cfg.Pipeline.MaxDistance
		pipelineConfig.Concurrency = cfg.Pipeline.Concurrency
		pipelineConfig.Timeout = cfg.Pipeline.Timeout
		pipelineConfig.EmitIntersections = cfg.Features.IntersectionsEnabled(cfg.Pipeline.CourseID)

		runPipeline = command.NewRunPipelineHandler(
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
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewPingCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewPingCheck(redisCache))
	}
	if cfg.CourseAPI.BaseURL != "" {
		healthChecker.AddCheck("course_api", handlers.NewExternalAPICheck(courseClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.APIKeys = cfg.HTTP.APIKeys
	serverConfig.DefaultCourseID = cfg.Pipeline.CourseID

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		ListClustersHandler:             listClusters,
		GetStatisticsHandler:            getStatistics,
		GetStudentClassificationHandler: getClassification,
		ListDimensionsHandler:           listDimensions,
		SaveClusterHandler:              saveCluster,
		DeleteClusterHandler:            deleteCluster,
		RunPipelineHandler:              runPipeline,
		Logger:                          httpLog,
		HealthChecker:                   healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("ClassLens API is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
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
