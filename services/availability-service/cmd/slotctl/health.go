package main

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/grpcx"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newHealthCmd() *cobra.Command {
	var (
		addr    string
		service string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the service's gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpcx.NewClient(addr)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", addr, resp.GetStatus())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9096", "gRPC address")
	cmd.Flags().StringVar(&service, "service", "", "service name to check (empty for the server)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
	return cmd
}
