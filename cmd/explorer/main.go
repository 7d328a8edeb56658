package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/occurrence-explorer/internal/app"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/config"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/health"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/server"
	"github.com/mohammed-shakir/occurrence-explorer/internal/dashboard"
	"github.com/mohammed-shakir/occurrence-explorer/internal/logger"
	h3mapper "github.com/mohammed-shakir/occurrence-explorer/internal/mapper/h3"
	"github.com/mohammed-shakir/occurrence-explorer/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Service:   "occurrence-explorer",
		Component: "explorer",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting explorer",
		"addr", cfg.Addr,
		"version", Version,
		"session_store", cfg.Session.Driver,
		"events", cfg.Events.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.NewSessionStore(ctx, cfg.Session)
	if err != nil {
		appLog.Error("session store setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			appLog.Warn("session store close", "err", err)
		}
	}()

	sink, err := app.NewEventSink(cfg.Events, appLog)
	if err != nil {
		appLog.Error("event publisher setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := sink.Close(); err != nil {
			appLog.Warn("event publisher close", "err", err)
		}
	}()

	h := dashboard.NewHandler(appLog, app.NewPipeline(cfg, appLog), store, h3mapper.New(), sink, dashboard.Defaults{
		PageSize: cfg.DefaultPageSize,
		YearFrom: cfg.DefaultYearFrom,
		HexRes:   cfg.HexRes,
	})

	opts := server.Options{
		SessionTTL: cfg.Session.TTL,
		Ready:      map[string]health.Pinger{"session": store},
	}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		version := cfg.Metrics.Version
		if version == "dev" {
			version = Version
		}
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
			Path:    cfg.Metrics.Path,
			Build: metrics.BuildInfo{
				Version:   version,
				Revision:  cfg.Metrics.Revision,
				Branch:    cfg.Metrics.Branch,
				BuildDate: cfg.Metrics.BuildDate,
			},
		})
		metricsHandler = p.Handler()
		if cfg.Metrics.Addr == "" {
			opts.Metrics, opts.MetricsPath = metricsHandler, cfg.Metrics.Path
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.Addr, appLog, server.NewRouter(appLog, h, opts))
	})
	if metricsHandler != nil && cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, appLog, cfg.Metrics.Addr, cfg.Metrics.Path, metricsHandler)
		})
	}
	if err := g.Wait(); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// serveMetrics runs a dedicated scrape listener until ctx is done.
func serveMetrics(ctx context.Context, l *slog.Logger, addr, path string, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle(path, h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("metrics listen", "addr", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
