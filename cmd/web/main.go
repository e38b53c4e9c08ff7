package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/filters"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/source/offline"
	"sales-dashboard/internal/source/remote"
)

// app is the wired dashboard: everything main starts and stops.
type app struct {
	handler   http.Handler
	dashboard *services.Dashboard
	filters   *filters.Store
	pipeline  *pipeline.Pipeline
	refresher *pipeline.Refresher
	detach    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dashboard.LoadTimeout)
	start := time.Now()
	fetcher, err := newSource(ctx, cfg, logger)
	if err != nil {
		cancel()
		logger.Error("failed to open data source", "mode", cfg.Source.Mode, "error", err)
		os.Exit(1)
	}

	a, err := newApp(ctx, cfg, logger, fetcher)
	cancel()
	if err != nil {
		logger.Error("failed to start dashboard", "error", err)
		os.Exit(1)
	}
	logger.Info("dashboard ready", "mode", cfg.Source.Mode, "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook(a.close)

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

// newSource opens the backend named by SOURCE_MODE.
func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Fetcher, error) {
	switch cfg.Source.Mode {
	case config.SourceOffline:
		return offline.Load(ctx, offline.Options{
			SalesPath:     cfg.Source.SalesCSV,
			CustomersPath: cfg.Source.CustomersCSV,
			CacheDir:      cfg.Source.CacheDir,
			Logger:        logger,
		})
	case config.SourceRemote:
		return remote.New(remote.Options{
			BaseURL: cfg.Source.BaseURL,
			Timeout: cfg.Source.RequestTimeout,
			RPS:     cfg.Source.RateLimitRPS,
			Burst:   cfg.Source.RateLimitBurst,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Source.Mode)
	}
}

// newApp loads the filter options, seeds the default selection and starts
// the first round. The dashboard subscribes before the store is attached so
// it sees every snapshot.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, fetcher pipeline.Fetcher) (*app, error) {
	options, err := fetcher.FilterOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load filter options: %w", err)
	}

	dashboard := services.NewDashboard(cfg.Dashboard.PageSize, logger)
	dashboard.SetFilterOptions(options)

	store := filters.NewStore(filters.Defaults(options, cfg.Dashboard.DefaultStart, cfg.Dashboard.DefaultEnd))

	rounds := pipeline.New(fetcher, logger)
	rounds.Subscribe(dashboard.Apply)
	detach := rounds.Attach(store)

	a := &app{
		dashboard: dashboard,
		filters:   store,
		pipeline:  rounds,
		detach:    detach,
	}

	if cfg.Dashboard.RefreshSchedule != "" {
		refresher, err := pipeline.NewRefresher(cfg.Dashboard.RefreshSchedule, store, logger)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		refresher.Start()
		a.refresher = refresher
		logger.Info("scheduled refresh enabled", "schedule", cfg.Dashboard.RefreshSchedule)
	}

	srv := server.NewServer(dashboard, store, rounds, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)
	a.handler = middlewareChain(srv)

	return a, nil
}

// close stops the schedule, detaches the store and waits for in-flight
// rounds.
func (a *app) close(ctx context.Context) error {
	if a.refresher != nil {
		a.refresher.Stop()
	}
	a.detach()
	return a.pipeline.Close(ctx)
}
