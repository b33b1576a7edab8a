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

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	"github.com/archestra-ai/reputation-bot/internal/adapters/http/api"
	"github.com/archestra-ai/reputation-bot/internal/adapters/http/swagger"
	app "github.com/archestra-ai/reputation-bot/internal/app"
	"github.com/archestra-ai/reputation-bot/internal/config"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second // deliveries are processed inline
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// We collect our own system metrics on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metricsOptions(cfg)...)

	err = run(ctx, cfg)
	stop()
	if err != nil {
		logger.Get().Error(context.Background(), "reputation bot failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is canceled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	gh, err := newGitHubClient(cfg)
	if err != nil {
		return err
	}

	svc := newService(cfg, gh)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

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
			logger.String("repository", cfg.Repository),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// newGitHubClient picks token auth, then App auth, then anonymous access.
func newGitHubClient(cfg *config.Config) (*github.Client, error) {
	opts := []github.Option{
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithTimeout(cfg.GitHubTimeout),
		github.WithLogger(logger.Named("github")),
	}
	switch {
	case cfg.GitHubToken != "":
		opts = append(opts, github.WithToken(cfg.GitHubToken))
	case cfg.GitHubAppID != 0:
		opts = append(opts, github.WithAppAuth(cfg.GitHubAppID, []byte(cfg.GitHubAppKey)))
	}

	gh, err := github.New(cfg.Repository, opts...)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	return gh, nil
}

func newService(cfg *config.Config, gh app.GitHub) *app.Service {
	return app.New(gh,
		app.WithLogger(logger.Named("service")),
		app.WithRepository(cfg.Repository),
		app.WithCoreTeam(cfg.CoreTeam),
		app.WithBotLogin(cfg.BotLogin),
		app.WithIgnoredLogins(cfg.IgnoredLogins),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFetchLimits(cfg.SearchLimit, cfg.CommenterLimit, cfg.ReactionScanLimit),
		app.WithParticipantLimits(cfg.MaxComments, cfg.MaxParticipants),
	)
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithSecret(cfg.WebhookSecret)).Register(ctx, mux)
	return mux
}

func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
		metrics.WithCustomLabels(map[string]string{"repository": cfg.Repository}),
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
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

// updateServiceMetrics copies service counters into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if !stats.Started {
		return
	}
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateWorkerCount(stats.Workers)
	metrics.UpdateDedupeEntries(stats.DedupeEntries)
}
