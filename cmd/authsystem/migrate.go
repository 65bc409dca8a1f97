package main

import (
	"context"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authsystem/store/postgres"
	"github.com/MrEthical07/authsystem/store/sqlite"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending schema migrations for the postgres or sqlite store.`,
		RunE:  runMigrate,
	}
	bindConfigFlags(cmd.Flags())
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cmd.Flags(), path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch strings.ToLower(cfg.Store.Driver) {
	case driverPostgres:
		cmd.Println("Connecting to database...")
		pool, err := postgres.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		cmd.Println("Running migrations...")
		if err := postgres.Migrate(ctx, pool); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}

	case driverSQLite:
		db, err := sqlite.Open(ctx, sqlitePath(cfg.Store.DSN))
		if err != nil {
			return err
		}
		defer db.Close()

		cmd.Println("Running migrations...")
		if err := sqlite.Migrate(ctx, db); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}

	default:
		return oops.Code("CONFIG_INVALID").Errorf("store driver %q has no migrations", cfg.Store.Driver)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
