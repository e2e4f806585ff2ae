package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/libs/grpcx"
)

// startGrpcServer exposes the standard gRPC health service so mesh and orchestrator probes can use
// gRPC as well as /readyz. It flips to NOT_SERVING before the graceful stop.
func startGrpcServer(ctx context.Context, logger *slog.Logger, service string) error {
	port, err := config.Port("GRPC_PORT", "9096")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, health := grpcx.NewServer(logger, service)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		health.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}
