package admin

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/database"
	"github.com/cloo-solutions/taskpilot/internal/memstore"
	"github.com/cloo-solutions/taskpilot/internal/repository"
)

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Import a YAML fixture into PostgreSQL",
		Long:  "Upsert the users, tenants, workspaces, work items, meetings and pages of a fixture in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed,
	}

	cmd.Flags().Bool("migrate", true, "Apply migrations before importing")
	cmd.Flags().String("dir", "migrations", "Directory containing the migration files")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := memstore.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load fixture: %w", err)
	}

	rt, err := openRuntime(ctx, "")
	if err != nil {
		return err
	}
	defer rt.Close()

	if migrateFirst, _ := cmd.Flags().GetBool("migrate"); migrateFirst {
		dir, _ := cmd.Flags().GetString("dir")
		if err := database.Migrate(rt.cfg.DatabaseURL, dir, rt.logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	counts, err := repository.NewTxRunner(rt.pool).Import(ctx, store.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to import fixture: %w", err)
	}
	rt.logger.Info("fixture imported", zap.String("path", args[0]))

	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return writeJSON(out, counts)
	}
	fmt.Fprintf(out, "Imported %s: %d users, %d tenants, %d workspaces, %d work items, %d meetings, %d pages\n",
		args[0], counts.Users, counts.Tenants, counts.Workspaces, counts.WorkItems, counts.Meetings, counts.Pages)
	return nil
}
