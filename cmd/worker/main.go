// Command worker runs the collections background processes: reminder
// delivery, the periodic risk sweep and the event handlers behind them.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	collectionsapp "github.com/collections/backend/internal/application/collections"
	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/collections/backend/internal/infrastructure/cache"
	"github.com/collections/backend/internal/infrastructure/clock"
	"github.com/collections/backend/internal/infrastructure/config"
	"github.com/collections/backend/internal/infrastructure/event"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/collections/backend/internal/infrastructure/migration"
	"github.com/collections/backend/internal/infrastructure/persistence"
	"github.com/collections/backend/internal/infrastructure/scheduler"
	"github.com/collections/backend/internal/infrastructure/storage"
	"github.com/collections/backend/internal/infrastructure/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry pipelines; each is a no-op when disabled
	telCfg := telemetry.FromConfig(cfg.Telemetry)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, zapcore.InfoLevel)

	log.Info("Starting collections worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	metrics, err := telemetry.NewCollectionsMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to register collections metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold),
		logger.WithRedactedParams(cfg.App.Env == "production"),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTracing {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.DBName = cfg.Database.DBName
		dbTracing.LogFullSQL = cfg.App.Env == "development"
		if err := telemetry.InstrumentDB(db.DB, dbTracing, log); err != nil {
			log.Fatal("Failed to instrument database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// River runs on its own pgx pool
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to create job queue pool", zap.Error(err))
	}
	defer pool.Close()

	riverMigrator, err := migration.NewRiverMigrator(pool, log)
	if err != nil {
		log.Fatal("Failed to create river migrator", zap.Error(err))
	}
	if err := riverMigrator.Up(ctx); err != nil {
		log.Fatal("Failed to migrate job queue schema", zap.Error(err))
	}

	// Repositories and ports
	taskRepo := persistence.NewGormTaskRepository(db.DB)
	directory := newDirectory(ctx, cfg, persistence.NewGormDirectory(db.DB), log)
	documents := newDocumentStore(ctx, cfg, log)

	eventBus := event.NewInMemoryEventBus(log,
		event.WithTracer(otel.GetTracerProvider().Tracer(telemetry.TracerName)),
		event.WithFailureHook(func(ctx context.Context, eventType string, err error) {
			log.Warn("Collections event handler failed", zap.String("event_type", eventType), zap.Error(err))
		}),
	)

	systemClock := clock.SystemClock{}
	service := collectionsapp.NewCollectionsService(taskRepo,
		collectionsapp.WithClock(systemClock),
		collectionsapp.WithRiskPolicy(collections.RiskPolicy{
			MediumAfterDays:    cfg.Collections.RiskMediumAfter,
			HighAfterDays:      cfg.Collections.RiskHighAfter,
			CriticalAfterDays:  cfg.Collections.RiskCriticalAfter,
			UnresponsiveWindow: cfg.Collections.UnresponsiveWindow,
		}),
		collectionsapp.WithPlanPolicy(collections.PlanPolicy{ShortfallTolerance: cfg.Collections.ShortfallTolerance}),
		collectionsapp.WithDefaultCurrency(valueobject.Currency(cfg.Collections.DefaultCurrency)),
		collectionsapp.WithEventPublisher(eventBus),
		collectionsapp.WithDocumentStore(documents),
		collectionsapp.WithDirectory(directory),
		collectionsapp.WithMetrics(metrics),
		collectionsapp.WithTracer(tracerProvider.Tracer(telemetry.TracerName)),
		collectionsapp.WithLogger(log),
		collectionsapp.WithSystemActor(cfg.Collections.SystemActorID),
	)

	// Job queue
	notifier := scheduler.NewChannelRouter(scheduler.NewLogNotifier(log))
	jobs, err := scheduler.New(pool, scheduler.ConfigFrom(cfg.Reminder, cfg.Collections), scheduler.Dependencies{
		Tasks:    taskRepo,
		Notifier: notifier,
		Sweeper:  service,
	}, log)
	if err != nil {
		log.Fatal("Failed to create job scheduler", zap.Error(err))
	}

	// Event handlers
	metricsHandler := collectionsapp.NewMetricsHandler(metrics)
	eventBus.Subscribe(metricsHandler)
	if cfg.Reminder.Enabled {
		reminderHandler := collectionsapp.NewReminderHandler(
			jobs.Reminders(),
			collectionsapp.ReminderPolicyFrom(cfg.Reminder),
			systemClock,
			metrics,
			log,
		)
		eventBus.Subscribe(reminderHandler)
		log.Info("Reminder handler registered", zap.Strings("events", reminderHandler.EventTypes()))
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start job scheduler", zap.Error(err))
	}
	log.Info("Collections worker started",
		zap.String("reminder_queue", cfg.Reminder.Queue),
		zap.Bool("risk_sweep", cfg.Collections.RiskSweepEnabled),
		zap.Duration("risk_sweep_interval", cfg.Collections.RiskSweepInterval),
	)

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping job scheduler", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Worker exited gracefully")
}

// newDirectory puts a cache in front of the directory replica: Redis when
// configured and reachable, otherwise in process
func newDirectory(ctx context.Context, cfg *config.Config, next collections.Directory, log *zap.Logger) collections.Directory {
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			log.Info("Directory cache using redis", zap.String("addr", cfg.Redis.Addr()))
			return cache.NewRedisDirectoryCache(client, next,
				cache.WithRedisTTL(cfg.Redis.DirectoryCacheTTL),
				cache.WithRedisKeyPrefix(cfg.Redis.KeyPrefix),
				cache.WithRedisLogger(log),
			)
		}
		log.Warn("Redis unavailable, falling back to in-memory directory cache", zap.Error(err))
	}
	return cache.NewInMemoryDirectoryCache(next, cache.WithInMemoryTTL(cfg.Redis.DirectoryCacheTTL))
}

// newDocumentStore returns the S3 store when storage is enabled. Without it
// documents are kept in memory, which only suits development.
func newDocumentStore(ctx context.Context, cfg *config.Config, log *zap.Logger) collections.DocumentStore {
	if !cfg.Storage.Enabled {
		if cfg.App.Env == "production" {
			log.Fatal("Document storage must be enabled in production")
		}
		log.Warn("Document storage disabled, legal documents are kept in memory")
		return storage.NewMemoryDocumentStore(cfg.Storage.MaxDocumentSize)
	}

	store, err := storage.NewS3DocumentStore(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create document store", zap.Error(err))
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare document bucket", zap.Error(err))
	}
	log.Info("Document store ready", zap.String("bucket", store.Bucket()))
	return store
}
