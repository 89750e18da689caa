// Stepwise - plan / execute / verify reasoning agent server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/stepwise/internal/api"
	"github.com/ashureev/stepwise/internal/app"
	"github.com/ashureev/stepwise/internal/config"
	"github.com/ashureev/stepwise/internal/console"
	"github.com/ashureev/stepwise/internal/generator"
	"github.com/ashureev/stepwise/internal/identity"
	"github.com/ashureev/stepwise/internal/middleware"
	"github.com/ashureev/stepwise/internal/store"
	"github.com/ashureev/stepwise/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("Failed to close resources", "error", closeErr)
		}
	}()

	var pinger api.Pinger
	if a.Store != nil {
		if err := a.Store.Ping(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		slog.Info("Database connected", "path", cfg.DBPath)
		pinger = a.Store
	}

	// Initialize handlers.
	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	solveHandler := api.NewSolveHandler(a.Loop, api.SolveHandlerConfig{
		Info: api.ServiceInfo{
			Generator:    cfg.Generator.Kind,
			ExecutorMode: cfg.ExecutorMode,
		},
		Limiter:     limiter,
		Rejects:     a.Metrics,
		MaxBodySize: cfg.MaxRequestBody,
		Logger:      logger,
	})
	healthHandler := api.NewHealthHandler(pinger)

	sm := console.NewSessionManager()
	wsHandler := console.NewHandler(a.Loop, sm, console.Config{
		Limiter:       solveHandler,
		Observer:      a.Metrics,
		AllowedOrigin: cfg.FrontendURL,
		IsDev:         cfg.IsDevelopment(),
		Logger:        logger,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	solveHandler.RegisterRoutes(r)
	r.Get("/ws/solve", wsHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}))

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Solves are synchronous, so the write timeout must cover a full retry
	// budget against a remote generator.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.MaxRetries+1)*3*cfg.Generator.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var (
		grpcServer *grpc.Server
		lis        net.Listener
	)
	if cfg.GRPCPort != "" {
		lis, err = net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer = grpc.NewServer()
		generator.RegisterServer(grpcServer, a.Planner, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Store != nil {
		janitorDone := store.StartJanitor(gctx, a.Store, 0, cfg.PlanCache.TTL)
		g.Go(func() error {
			<-janitorDone
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		g.Go(func() error {
			slog.Info("Generator gRPC service listening", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	// Wait for shutdown signal or a failed listener.
	g.Go(func() error {
		<-gctx.Done()
		stop()

		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		sm.CloseAll()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
