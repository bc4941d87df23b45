package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindstorm-criteria-engine/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL review schema",
	}

	cmd.AddCommand(
		newMigrateStepCommand("up", "Apply all pending migrations", func(r *database.MigrationRunner, cmd *cobra.Command) error {
			return r.Up(cmd.Context())
		}),
		newMigrateStepCommand("down", "Roll back the most recent migration", func(r *database.MigrationRunner, cmd *cobra.Command) error {
			return r.Down(cmd.Context())
		}),
		newMigrateStepCommand("version", "Print the current schema version", func(r *database.MigrationRunner, cmd *cobra.Command) error {
			version, dirty, err := r.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		}),
	)
	return cmd
}

func newMigrateStepCommand(use, short string, run func(*database.MigrationRunner, *cobra.Command) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			dbCfg := a.config.GetDatabaseConfig()
			runner, err := database.NewMigrationRunner(dbCfg.URL(), dbCfg.MigrationsPath, a.logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			return run(runner, cmd)
		},
	}
}
