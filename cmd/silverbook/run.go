package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"
	"golang.org/x/oauth2"

	"github.com/eugener/silverbook/internal/app"
	"github.com/eugener/silverbook/internal/cache"
	"github.com/eugener/silverbook/internal/circuitbreaker"
	"github.com/eugener/silverbook/internal/config"
	"github.com/eugener/silverbook/internal/server"
	"github.com/eugener/silverbook/internal/storage"
	"github.com/eugener/silverbook/internal/storage/rest"
	"github.com/eugener/silverbook/internal/storage/sqlite"
	"github.com/eugener/silverbook/internal/telemetry"
	"github.com/eugener/silverbook/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Log))

	slog.Info("starting silverbook", "version", version, "addr", cfg.Server.Addr, "backend", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, version, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				slog.Error("tracing shutdown failed", "error", err)
			}
		}()
	}

	// Metrics
	var (
		metrics        *telemetry.Metrics
		metricsHandler http.Handler
	)
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Open backend
	store, workers, err := openBackend(cfg.Database, metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	// Bootstrap from config
	if err := config.Bootstrap(ctx, cfg, store); err != nil {
		return err
	}

	// Wire services
	c, err := cache.New(cache.Options{
		DefaultTTL:     cfg.Cache.DefaultTTL,
		StaleFraction:  cfg.Cache.StaleFraction,
		RefreshTimeout: cfg.Cache.RefreshTimeout,
		MaxSize:        cfg.Cache.MaxSize,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}
	defer c.Wait()

	svc := app.New(store, c)
	if cfg.Warmer.Enabled {
		workers = append(workers, worker.NewCacheWarmer(cfg.Warmer.Interval, worker.HotKeys(svc)...))
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workerErr := make(chan error, 1)
	workersStopped := make(chan struct{})
	go func() {
		defer close(workersStopped)
		if err := worker.NewRunner(workers...).Run(workerCtx); err != nil {
			workerErr <- err
		}
	}()

	// Create HTTP server
	handler := server.New(server.Deps{
		Services:       svc,
		ReadyCheck:     svc.Ping,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("silverbook ready", "addr", cfg.Server.Addr)

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		runErr = err
	case err := <-workerErr:
		runErr = fmt.Errorf("worker: %w", err)
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	stopWorkers()
	<-workersStopped

	slog.Info("silverbook stopped")
	return runErr
}

// openBackend returns the configured storage backend and any workers it
// needs running alongside it.
func openBackend(cfg config.DatabaseConfig, metrics *telemetry.Metrics) (storage.Backend, []worker.Worker, error) {
	switch cfg.Driver {
	case config.DriverREST:
		var workers []worker.Worker
		var resolver *dnscache.Resolver
		if cfg.DNSRefresh > 0 {
			resolver = &dnscache.Resolver{}
			workers = append(workers, worker.NewDNSRefresher(resolver, cfg.DNSRefresh))
		}
		var src oauth2.TokenSource
		if cfg.ServiceToken != "" {
			src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.ServiceToken, TokenType: "Bearer"})
		}
		client, err := rest.New(rest.Options{
			URL:         cfg.URL,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.Timeout,
			TokenSource: src,
			Resolver:    resolver,
			Breaker:     newBreaker(cfg.Breaker, metrics),
		})
		if err != nil {
			return nil, nil, err
		}
		return client, workers, nil
	default:
		store, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// newBreaker returns the backend circuit breaker, or nil when disabled.
func newBreaker(cfg config.BreakerConfig, metrics *telemetry.Metrics) *circuitbreaker.Breaker {
	if !cfg.Enabled {
		return nil
	}
	b := circuitbreaker.NewBreaker(circuitbreaker.Config{
		ErrorThreshold: cfg.ErrorThreshold,
		MinSamples:     cfg.MinSamples,
		WindowSeconds:  cfg.WindowSeconds,
		OpenTimeout:    cfg.OpenTimeout,
	})
	b.OnStateChange = func(s circuitbreaker.State) {
		slog.Warn("backend circuit breaker", "state", s.String())
		if metrics != nil {
			metrics.BackendBreakerState.Set(float64(s))
		}
	}
	return b
}

// newLogger builds the process logger from the log config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
