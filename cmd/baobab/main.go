// Baobab - SSP climate scenarios to African crop-yield risk.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

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

	"github.com/opensource-finance/baobab/internal/api"
	"github.com/opensource-finance/baobab/internal/bus"
	"github.com/opensource-finance/baobab/internal/cache"
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/climate"
	"github.com/opensource-finance/baobab/internal/compare"
	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/opensource-finance/baobab/internal/observability"
	"github.com/opensource-finance/baobab/internal/outlook"
	"github.com/opensource-finance/baobab/internal/repository"
	"github.com/opensource-finance/baobab/internal/rules"
	"github.com/opensource-finance/baobab/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace/noop"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("baobab stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := domain.DefaultConfig()
	if os.Getenv("BAOBAB_MODE") == "distributed" {
		cfg = domain.DistributedConfig()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting baobab",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"async_worker", cfg.AsyncWorker,
	)

	if cfg.Tracing.Enabled {
		otel.SetTextMapPropagator(propagation.TraceContext{})
	} else {
		otel.SetTracerProvider(noop.NewTracerProvider())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("loading catalog %q: %w", cfg.Catalog.Path, err)
	}
	if _, err := cat.GetScenario(cfg.Model.BaselineScenario); err != nil {
		slog.Warn("baseline scenario not in catalog, deltas disabled",
			"baseline", cfg.Model.BaselineScenario,
		)
	}
	slog.Info("catalog loaded",
		"scenarios", len(cat.ListScenarios()),
		"regions", len(cat.ListRegions()),
		"crops", len(cat.ListCrops()),
	)

	engine, err := rules.NewEngine(cat)
	if err != nil {
		return fmt.Errorf("compiling recommendation rules: %w", err)
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	projector := climate.NewProjector(cat, cfg.Model.HorizonStart, cfg.Model.HorizonEnd)
	comparer := compare.NewComparer(cat, projector, engine, compare.Options{
		Workers:          cfg.Model.Workers,
		BaselineScenario: cfg.Model.BaselineScenario,
		Metrics:          metrics,
		Logger:           logger,
	})
	processor := outlook.NewProcessor(cat, cfg.Model.OutlookStart, cfg.Model.OutlookEnd, cfg.Model.BaselineScenario)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("opening %s repository: %w", cfg.Repository.Driver, err)
	}
	defer repo.Close()

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("creating %s cache: %w", cfg.Cache.Type, err)
	}
	defer cacheImpl.Close()

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("creating %s event bus: %w", cfg.EventBus.Type, err)
	}
	defer busImpl.Close()

	slog.Info("pipeline ready",
		"recommendations", engine.Count(),
		"workers", cfg.Model.Workers,
		"horizon_start", cfg.Model.HorizonStart,
		"horizon_end", cfg.Model.HorizonEnd,
	)

	if cfg.AsyncWorker {
		w := worker.NewWorker(busImpl, repo, cacheImpl, comparer, processor, metrics, logger)
		if err := w.Start(worker.Config{ResultTTL: cfg.Cache.ResultTTL}); err != nil {
			return fmt.Errorf("starting async worker: %w", err)
		}
		defer func() {
			if err := w.Stop(); err != nil {
				slog.Error("failed to stop async worker", "error", err)
			}
		}()
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Catalog:     cat,
		Projector:   projector,
		Recommender: engine,
		Comparer:    comparer,
		Outlook:     processor,
		Repo:        repo,
		Cache:       cacheImpl,
		Bus:         busImpl,
		Metrics:     metrics,
		ResultTTL:   cfg.Cache.ResultTTL,
		Version:     Version,
	}, nil)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("baobab is ready", "addr", srv.Addr())
	printBanner(cfg, Version)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http: %w", err)
	}
	slog.Info("baobab shutdown complete")
	return nil
}

// loadCatalog reads the configured YAML catalog, or the built-in one when no
// path is set.
func loadCatalog(cfg domain.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Path == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.Path)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  BAOBAB - climate scenario crop risk")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Horizon:  %d-%d (baseline %s)\n", cfg.Model.HorizonStart, cfg.Model.HorizonEnd, cfg.Model.BaselineScenario)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /scenarios                  - List SSP scenarios")
	fmt.Println("    GET  /regions                    - List regions")
	fmt.Println("    GET  /crops                      - List crops")
	fmt.Println("    GET  /projections                - Project climate for scenario/region/year")
	fmt.Println("    GET  /recommendations            - Adaptation actions for scenario/tier/crop")
	fmt.Println("    POST /compare                    - Compare scenarios across years")
	fmt.Println("    POST /comparisons                - Queue a comparison for the worker")
	fmt.Println("    GET  /comparisons                - List stored comparisons")
	fmt.Println("    GET  /comparisons/{id}           - Get a stored comparison")
	fmt.Println("    GET  /comparisons/{id}/outlook   - Per-scenario outlook")
	fmt.Println("    GET  /health, /ready, /metrics")
	fmt.Println()
}
