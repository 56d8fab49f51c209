package db

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/storage"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

const (
	downFlag       = "down"
	connectTimeout = 10 * time.Second
)

func newMigrate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Applies the kv_store migrations to the configured PostgreSQL database",
		Long: `Applies the kv_store migrations to storage.postgres_dsn.

The server applies pending migrations on start when the postgres driver
is selected; this command exists for provisioning and rollbacks.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool(downFlag, false, "Roll back instead of applying migrations.")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}
	command.ConfigureLogger(cfg)

	down, err := cmd.Flags().GetBool(downFlag)
	if err != nil {
		return err
	}
	dir := migrate.Up
	if down {
		dir = migrate.Down
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := storage.OpenPostgreSQL(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := storage.Migrate(db, dir)
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}

	log.Info().Int("applied", n).Bool("down", down).Msg("Migrations finished")
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", n)
	return nil
}
