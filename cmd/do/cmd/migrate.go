package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/syntaxduel/syntaxduel/internal/config"
	"github.com/syntaxduel/syntaxduel/internal/db"
)

type migrateFunc func(database *sql.DB, driver string) error

func MigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	migrateCmd.AddCommand(
		migrationCmd("up", "Apply all pending migrations", db.RunMigrations),
		migrationCmd("down", "Roll back the most recent migration", db.MigrateDown),
		migrationCmd("status", "Show applied and pending migrations", db.MigrationStatus),
	)

	return migrateCmd
}

func migrationCmd(use, short string, run migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			return withDatabase(cfg, run)
		},
	}
}

func withDatabase(cfg *config.Config, run migrateFunc) error {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	return run(database.DB, cfg.DBDriver)
}
