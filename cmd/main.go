package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/gympulse/internal/adapters/cache"
	"github.com/okian/gympulse/internal/adapters/http/api"
	"github.com/okian/gympulse/internal/adapters/http/swagger"
	"github.com/okian/gympulse/internal/adapters/mq/kafka"
	"github.com/okian/gympulse/internal/adapters/repository/postgres"
	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/config"
	"github.com/okian/gympulse/internal/domain/kpi"
	"github.com/okian/gympulse/pkg/logger"
	"github.com/okian/gympulse/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "gympulse stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the components selected by cfg and serves until ctx ends.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); startSystemMetricsUpdater(ctx) }()
	go func() { defer wg.Done(); startServiceMetricsUpdater(ctx, svc) }()

	if len(cfg.KafkaBrokers) > 0 {
		consumer := kafka.NewConsumer(
			kafka.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup),
			kafka.IngestHandler(svc),
			kafka.WithLogger(log.Named("kafka-consumer")),
		)
		svc.WatchConsumer("kafka", consumer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = consumer.Run(ctx)
			if err := consumer.Close(); err != nil {
				log.Warn(ctx, "kafka reader close failed", logger.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	wg.Wait()

	log.Info(shutdownCtx, "server stopped")
	return errors.Join(errs...)
}

// buildService connects the optional Postgres store and Redis cache and
// returns the service plus a cleanup that closes them.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	table, err := cfg.PermissionTable()
	if err != nil {
		return nil, nil, err
	}
	log.Info(ctx, "permission table loaded", logger.Any("roles", table.Roles()))
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFetchTimeout(cfg.FetchTimeout),
		app.WithEngine(kpi.NewEngine(kpi.WithVocabulary(cfg.Vocabulary()))),
		app.WithPermissions(table),
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseURL,
			postgres.WithMigrations(cfg.RunMigrations),
			postgres.WithLogger(log.Named("postgres")),
		)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		opts = append(opts, app.WithStore(store))
	}

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		opts = append(opts,
			app.WithSnapshotCache(cache.NewSnapshotCache(client, cache.WithTTL(cfg.CacheTTL))),
			app.WithDeduper(cache.NewDeduper(client, cfg.DedupeTTL, log.Named("redis-deduper"))),
		)
		log.Info(ctx, "redis enabled", logger.String("addr", cfg.RedisAddr))
	}

	return app.New(opts...), cleanup, nil
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithJWTSecret(cfg.JWTSecret),
		api.WithLogger(log.Named("http")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics publishes the pipeline gauges from the service stats.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateWorkerCount(stats.Workers)
	if stats.QueueCapacity > 0 {
		metrics.UpdateQueueUtilization(float64(stats.QueueLength) / float64(stats.QueueCapacity))
	}
}
