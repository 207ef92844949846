package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/login-approval-service/internal/config"
	"github.com/SAP-F-2025/login-approval-service/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.StoreDriver != config.StoreDriverPostgres {
			return fmt.Errorf("migrations need STORE_DRIVER=%s", config.StoreDriverPostgres)
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd.Context(), cfg, func(m *migrations.Migrator) error {
			if err := m.Up(cmd.Context()); err != nil {
				return err
			}
			color.Green("Migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd.Context(), cfg, func(m *migrations.Migrator) error {
			if err := m.Down(cmd.Context()); err != nil {
				return err
			}
			color.Yellow("Rolled back one migration")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd.Context(), cfg, func(m *migrations.Migrator) error {
			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Version", "Migration", "Applied"})
			for _, s := range statuses {
				applied := "no"
				if s.Applied {
					applied = "yes"
				}
				table.Append([]string{strconv.FormatInt(s.Version, 10), s.Source, applied})
			}
			table.Render()

			version, err := m.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Current version: %d\n", version)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}
