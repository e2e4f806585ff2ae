package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/libs/db"
	"github.com/md-rashed-zaman/apptslots/libs/runtime"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/storage"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	rulesFile   string
	databaseURL string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "slotctl",
		Short: "Diagnostics for the availability service",
		Long: `slotctl exercises the availability engine outside the HTTP service.

Rules are read from a YAML rules file (--rules-file, RULES_FILE) or from Postgres
(--database-url, DATABASE_URL). A .env file in the working directory is honored.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.rulesFile, "rules-file", "", "YAML rules file (default $RULES_FILE)")
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Postgres URL (default $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics output")

	cmd.AddCommand(newDSTTransitionsCmd(opts))
	cmd.AddCommand(newWorkflowsCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newCacheCmd())
	return cmd
}

func (o *globalOptions) logger() *slog.Logger {
	return runtime.NewLoggerWithLevel("slotctl", o.logLevel)
}

type stores struct {
	rules      availability.RuleStore
	eventTypes storage.EventTypeStore
	close      func()
}

// openStores prefers the rules file when both sources are configured.
func (o *globalOptions) openStores(ctx context.Context) (stores, error) {
	rulesFile := o.rulesFile
	if rulesFile == "" {
		rulesFile = config.String("RULES_FILE", "")
	}
	if rulesFile != "" {
		s, err := storage.LoadYAMLStore(rulesFile)
		if err != nil {
			return stores{}, err
		}
		return stores{rules: s, eventTypes: s, close: func() {}}, nil
	}

	dbURL := o.databaseURL
	if dbURL == "" {
		dbURL = config.String("DATABASE_URL", "")
	}
	if dbURL == "" {
		return stores{}, fmt.Errorf("set --rules-file or --database-url")
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
	if err != nil {
		return stores{}, err
	}
	s := storage.NewPostgresStore(pool)
	return stores{rules: s, eventTypes: s, close: pool.Close}, nil
}
