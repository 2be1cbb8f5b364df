package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/hrdesk/internal/adapters/cache"
	"github.com/okian/hrdesk/internal/adapters/http/api"
	"github.com/okian/hrdesk/internal/adapters/http/site"
	"github.com/okian/hrdesk/internal/adapters/http/swagger"
	"github.com/okian/hrdesk/internal/adapters/repository"
	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/config"
	"github.com/okian/hrdesk/internal/domain/dedupe"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/seed"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Default Go collectors are not served; the custom registry carries our own system metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		for _, bad := range config.InvalidSettings(err) {
			os.Stderr.WriteString("  check " + bad.Key + " (" + bad.EnvVar() + ")\n")
		}
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run wires storage, the service and the HTTP server, and blocks until ctx is
// cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error(closeCtx, "close store", logger.Error(err))
		}
	}()

	deduper, closeDeduper, err := newDeduper(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeduper()

	svc, err := newService(cfg, store, deduper)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("storage", store.Driver()),
			logger.String("dedupe", cfg.DedupeBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// openStore opens the configured record store.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	store, err := repository.Open(ctx, cfg.StorageDriver,
		repository.WithPostgresDSN(cfg.PostgresDSN),
		repository.WithMongoURI(cfg.MongoURI),
		repository.WithMongoDatabase(cfg.MongoDatabase),
		repository.WithMetrics(true),
		repository.WithLogger(logger.Get().Named("repository")),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}
	return store, nil
}

// newDeduper builds the configured submission deduper and a func releasing
// its resources.
func newDeduper(ctx context.Context, cfg *config.Config) (dedupe.Deduper, func(), error) {
	if cfg.DedupeBackend != config.DedupeRedis {
		return dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize)), func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	d := cache.NewRedisDeduper(client,
		cache.WithTTL(cfg.DedupeTTL()),
		cache.WithLogger(logger.Get().Named("dedupe")),
	)
	return d, func() {
		if err := d.Close(); err != nil {
			logger.Get().Error(context.Background(), "close redis", logger.Error(err))
		}
	}, nil
}

// newService builds the service from configuration, loading fixtures when
// seeding is enabled.
func newService(cfg *config.Config, store *repository.Store, deduper dedupe.Deduper) (*service.Service, error) {
	opts := []service.Option{
		service.WithLogger(logger.Get().Named("service")),
		service.WithStore(store),
		service.WithDeduper(deduper),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxListLimit(cfg.MaxListLimit),
	}
	if cfg.SeedDefaults {
		fx, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		opts = append(opts, service.WithFixtures(fx))
	}
	return service.New(opts...), nil
}

// newMux registers the API, documentation and landing page routes.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()

	apiServer := api.NewServer(svc, svc,
		api.WithMaxListLimit(cfg.MaxListLimit),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithCollection[model.Employee](svc.Employees),
		api.WithCollection[model.Department](svc.Departments),
		api.WithCollection[model.Benefit](svc.Benefits),
		api.WithCollection[model.Training](svc.Trainings),
		api.WithCollection[model.Shift](svc.Shifts),
		api.WithCollection[model.Candidate](svc.Candidates),
		api.WithCollection[model.EvaluationForm](svc.EvaluationForms),
		api.WithCollection[model.EvaluationPeriod](svc.EvaluationPeriods),
		api.WithCollection[model.Evaluation](svc.Evaluations),
	)
	apiServer.Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
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
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
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

// updateServiceMetrics updates service-level metrics. GetStats refreshes the
// queue and worker gauges itself.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if records, ok := stats["records"].(map[string]int); ok {
		for kind, n := range records {
			metrics.UpdateRecordsTotal(kind, n)
		}
	}
}
