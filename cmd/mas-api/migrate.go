package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/pkg/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(a, func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return reportVersion(a, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withMigrator(a, func(m *database.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return reportVersion(a, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(a, func(m *database.Migrator) error {
				return reportVersion(a, m)
			})
		},
	})
	return cmd
}

func withMigrator(a *app, fn func(m *database.Migrator) error) error {
	db, err := database.NewPostgres(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	return fn(m)
}

func reportVersion(a *app, m *database.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	a.log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
