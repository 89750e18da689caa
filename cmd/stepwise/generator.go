package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/ashureev/stepwise/internal/generator"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newGeneratorCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generator",
		Short: "Text generator service commands",
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fixture generator over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return serveGenerator(cmd.Context(), lis, generator.NewMock(), root.logger)
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":50051", "listen address")

	cmd.AddCommand(serve)
	return cmd
}

// serveGenerator blocks until ctx is done or the server fails.
func serveGenerator(ctx context.Context, lis net.Listener, gen generator.Generator, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer()
	generator.RegisterServer(srv, gen, logger)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(lis)
	}()
	logger.Warn("Generator service listening", "addr", lis.Addr().String())

	select {
	case <-ctx.Done():
		hs.Shutdown()
		srv.GracefulStop()
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
