package main

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis snapshot cache",
	}
	cmd.AddCommand(newCacheInvalidateCmd())
	return cmd
}

func newCacheInvalidateCmd() *cobra.Command {
	var organizerID, addr, password string
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop every cached snapshot of an organizer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = config.String("REDIS_ADDR", "")
			}
			if addr == "" {
				return errors.New("set --redis-addr or REDIS_ADDR")
			}
			if password == "" {
				password = config.String("REDIS_PASSWORD", "")
			}
			rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
			defer func() { _ = rdb.Close() }()

			if err := storage.NewCachedStore(nil, rdb, 0, nil).Invalidate(cmd.Context(), organizerID); err != nil {
				return fmt.Errorf("invalidate %s: %w", organizerID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache cleared for %s\n", organizerID)
			return nil
		},
	}
	cmd.Flags().StringVar(&organizerID, "organizer", "", "organizer id")
	cmd.Flags().StringVar(&addr, "redis-addr", "", "Redis address (default $REDIS_ADDR)")
	cmd.Flags().StringVar(&password, "redis-password", "", "Redis password (default $REDIS_PASSWORD)")
	_ = cmd.MarkFlagRequired("organizer")
	return cmd
}
