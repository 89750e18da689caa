// Package app wires configuration into a ready-to-serve agent: store, plan
// cache, generator backend, metrics and the reasoning loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/stepwise/internal/agent"
	"github.com/ashureev/stepwise/internal/config"
	"github.com/ashureev/stepwise/internal/generator"
	"github.com/ashureev/stepwise/internal/metrics"
	"github.com/ashureev/stepwise/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds the wired components. Store is nil when the plan cache is
// disabled.
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    *store.SQLiteStore
	Backend  generator.Generator
	Planner  generator.Generator
	Loop     *agent.Loop
	closers  []func() error
	logger   *slog.Logger
}

// New builds an App from cfg. Call Close to release the store and any remote
// connection.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Registry: reg,
		Metrics:  metrics.MustNew(reg),
		logger:   logger,
	}

	backend, err := a.newBackend(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Backend = backend
	a.Planner = backend

	if cfg.PlanCache.Enabled {
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open plan cache: %w", err)
		}
		a.Store = repo
		a.closers = append(a.closers, repo.Close)
		a.Planner = generator.NewCached(backend, repo, generator.CacheConfig{
			Size: cfg.PlanCache.Size,
			TTL:  cfg.PlanCache.TTL,
		}, a.Metrics, logger)
	}

	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithMaxRetries(cfg.MaxRetries),
		agent.WithObserver(a.Metrics),
	}
	if cfg.ExecutorMode == config.ExecutorModel {
		opts = append(opts, agent.WithModelStages(backend))
	}
	a.Loop = agent.NewLoop(a.Planner, opts...)

	logger.Info("Agent ready",
		"generator", cfg.Generator.Kind,
		"executor_mode", cfg.ExecutorMode,
		"max_retries", a.Loop.MaxRetries(),
		"plan_cache", cfg.PlanCache.Enabled,
	)
	return a, nil
}

func (a *App) newBackend(ctx context.Context) (generator.Generator, error) {
	kind, ok := generator.ParseKind(a.Config.Generator.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown generator %q", a.Config.Generator.Kind)
	}

	switch kind {
	case generator.KindGemini:
		g, err := generator.NewGemini(ctx, a.Config.Generator.APIKey, a.Config.Generator.GeminiModel, a.logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini generator: %w", err)
		}
		return g, nil
	case generator.KindGrpc:
		gcfg := generator.DefaultGrpcClientConfig()
		gcfg.Address = a.Config.Generator.Addr
		gcfg.RequestTimeout = a.Config.Generator.Timeout
		c, err := generator.NewGrpcClient(gcfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect generator: %w", err)
		}
		a.closers = append(a.closers, func() error {
			c.Close()
			return nil
		})
		return c, nil
	default:
		return generator.NewMock(), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
