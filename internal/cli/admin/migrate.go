package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/taskpilot/internal/config"
	"github.com/cloo-solutions/taskpilot/internal/database"
	"github.com/cloo-solutions/taskpilot/internal/logging"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending SQL migrations to TASKPILOT_DATABASE_URL",
		RunE:  runMigrate,
	}

	cmd.Flags().String("dir", "migrations", "Directory containing the migration files")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dir, _ := cmd.Flags().GetString("dir")
	if err := database.Migrate(cfg.DatabaseURL, dir, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
