package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	appasset "github.com/medierp/ledger/internal/application/asset"
	appcashier "github.com/medierp/ledger/internal/application/cashier"
	appevent "github.com/medierp/ledger/internal/application/event"
	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/medierp/ledger/internal/infrastructure/auth"
	"github.com/medierp/ledger/internal/infrastructure/cache"
	"github.com/medierp/ledger/internal/infrastructure/config"
	"github.com/medierp/ledger/internal/infrastructure/event"
	"github.com/medierp/ledger/internal/infrastructure/export"
	"github.com/medierp/ledger/internal/infrastructure/lock"
	"github.com/medierp/ledger/internal/infrastructure/logger"
	"github.com/medierp/ledger/internal/infrastructure/persistence"
	"github.com/medierp/ledger/internal/infrastructure/printing"
	"github.com/medierp/ledger/internal/infrastructure/scheduler"
	"github.com/medierp/ledger/internal/infrastructure/storage"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"github.com/medierp/ledger/internal/interfaces/http/handler"
	"github.com/medierp/ledger/internal/interfaces/http/middleware"
	"github.com/medierp/ledger/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// shutdownFunc releases one component within the shutdown deadline
type shutdownFunc func(ctx context.Context) error

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shutdown hooks run in reverse registration order
	var closers []shutdownFunc
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				log.Error("Shutdown step failed", zap.Error(err))
			}
		}
	}()

	// Telemetry
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init log export: %w", err)
	}
	closers = append(closers, logProvider.Shutdown)
	log = logProvider.Bridge(log, cfg.Telemetry.ServiceName)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	closers = append(closers, tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	closers = append(closers, meterProvider.Shutdown)
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileMemory:   true,
	}, log)
	if err != nil {
		return fmt.Errorf("init profiler: %w", err)
	}
	closers = append(closers, func(context.Context) error { return profiler.Stop() })
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowQuery),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	closers = append(closers, func(context.Context) error { return db.Close() })
	log.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))

	if err := telemetry.RegisterOtelGorm(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:          cfg.Database.DBName,
		IncludeSQLVars:  cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Database.SlowQuery,
	}, log); err != nil {
		return fmt.Errorf("register db tracing: %w", err)
	}

	// Redis backs the account cache, token revocation, the processed event
	// store and the depreciation lock. Without it each falls back to an
	// in-process variant, except the lock which is then skipped.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func(context.Context) error { return redisClient.Close() })
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var (
		accountCache appaccounting.AccountCache
		blacklist    auth.TokenBlacklist
		processed    shared.IdempotencyStore
		jobLocker    appasset.JobLocker
	)
	if redisClient != nil {
		accountCache = cache.NewRedisAccountCache(redisClient, cfg.Redis.CacheTTL)
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		processed = cache.NewRedisIdempotencyStore(redisClient)
		if cfg.Depreciation.LockEnabled {
			jobLocker = lock.NewRedisJobLocker(redisClient, log)
		}
	} else {
		accountCache = cache.NewInMemoryAccountCache(cfg.Redis.CacheTTL)
		blacklist = auth.NewInMemoryTokenBlacklist()
		processed = cache.NewInMemoryIdempotencyStore()
	}

	// Application services
	settlementOpts, err := settlementOptions(cfg.Settlement)
	if err != nil {
		return err
	}

	serializer := event.NewLedgerEventSerializer()
	scope := persistence.NewGormTransactionScope(db.DB, serializer)
	reads := persistence.NewGormRepositories(db.DB, serializer)
	poster := appaccounting.NewPoster(log)

	chartService := appaccounting.NewChartService(scope, reads, accountCache, log)
	calendarService := appaccounting.NewCalendarService(scope, reads, poster, log)
	ledgerService := appaccounting.NewLedgerService(scope, reads, poster, log)
	settlementService := appsettlement.NewSettlementService(scope, reads, poster, nil, settlementOpts, log)
	shiftService := appcashier.NewShiftService(scope, reads, poster, log)
	depreciationService := appasset.NewDepreciationService(scope, reads, poster, jobLocker, cfg.Depreciation.LockTTL, log)

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		return fmt.Errorf("init ledger metrics: %w", err)
	}
	poster.SetMetrics(ledgerMetrics)
	settlementService.SetMetrics(ledgerMetrics)
	shiftService.SetMetrics(ledgerMetrics)
	depreciationService.SetMetrics(ledgerMetrics)

	// Events recorded in the outbox are relayed to the in-process bus
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewDeliveryLogHandler(log),
		processed,
		shared.IdempotencyConfig{Enabled: true, TTL: cfg.Event.IdempotencyTTL},
		log,
	))

	var archive handler.PeriodArchive
	if cfg.Storage.Enabled {
		store, err := storage.NewS3Storage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Warn("Archive bucket not ready", zap.String("bucket", store.Bucket()), zap.Error(err))
		}
		archiver := export.NewPeriodArchiver(ledgerService, store, log)
		eventBus.Subscribe(event.NewIdempotentHandler(
			archiver,
			processed,
			shared.IdempotencyConfig{Enabled: true, TTL: cfg.Event.IdempotencyTTL},
			log,
		))
		archive = archiver
	}

	var printer handler.ReceiptPrinter
	if cfg.Printing.Enabled {
		renderer := printing.NewChromeRenderer(printing.ChromeConfig{
			RemoteURL: cfg.Printing.ChromeURL,
			NoSandbox: cfg.Printing.NoSandbox,
			Timeout:   cfg.Printing.Timeout,
		}, log)
		closers = append(closers, func(context.Context) error { return renderer.Close() })
		printer = printing.NewReceiptPrinter(renderer, cfg.Printing.ReceiptTitle)
		log.Info("Receipt printing enabled", zap.Bool("remote_chrome", cfg.Printing.ChromeURL != ""))
	}

	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention

		processor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log)
		if err := processor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
		closers = append(closers, processor.Stop)
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	if cfg.Depreciation.ScheduleEnabled {
		trigger := scheduler.NewDepreciationTrigger(scheduler.Config{
			Hour:          cfg.Depreciation.ScheduleHour,
			Minute:        cfg.Depreciation.ScheduleMinute,
			CheckInterval: cfg.Depreciation.CheckInterval,
		}, persistence.NewGormFixedAssetRepository(db.DB), depreciationService, log)
		if err := trigger.Start(ctx); err != nil {
			return fmt.Errorf("start depreciation trigger: %w", err)
		}
		closers = append(closers, trigger.Stop)
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return fmt.Errorf("setup validator: %w", err)
	}

	engine, err := newEngine(cfg, log, meter)
	if err != nil {
		return err
	}

	readiness := map[string]handler.ReadinessCheck{"database": db.Ping}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router.NewRouter(engine,
		router.WithAPIMiddleware(
			middleware.JWTAuth(middleware.JWTConfig{
				Verifier:  auth.NewTokenVerifier(cfg.JWT),
				Blacklist: blacklist,
				Logger:    log,
			}),
			middleware.SpanAttributes(),
			middleware.Profiling(profiler.IsEnabled()),
		),
		router.WithSystemRoutes(handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, readiness)),
	).Register(
		handler.NewAccountingHandler(chartService, calendarService, ledgerService),
		handler.NewSettlementHandler(settlementService).WithPrinter(printer),
		handler.NewCashierHandler(shiftService, settlementService),
		handler.NewAssetHandler(depreciationService),
		handler.NewReportHandler(ledgerService, settlementService).WithArchive(archive),
		handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log)),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}

// newEngine builds the gin engine with the global middleware stack in
// request order
func newEngine(cfg *config.Config, log *zap.Logger, meter metric.Meter) (*gin.Engine, error) {
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		middleware.SecureHeaders(),
		middleware.CORS(middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
			MaxAge:       12 * time.Hour,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
		httpMetrics,
	)
	return engine, nil
}

func settlementOptions(cfg config.SettlementConfig) (appsettlement.Options, error) {
	locale, err := language.Parse(cfg.Locale)
	if err != nil {
		return appsettlement.Options{}, fmt.Errorf("settlement.locale %q: %w", cfg.Locale, err)
	}
	return appsettlement.Options{
		DischargeBlockThreshold: cfg.DischargeBlockThreshold,
		DefaultCurrency:         valueobject.Currency(cfg.DefaultCurrency),
		Locale:                  locale,
		WorklistLimit:           cfg.WorklistLimit,
	}, nil
}
