package main

import (
	"errors"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"raggate/internal/pkg/database"
)

var errSQLiteMigrate = errors.New("sqlite schema is created by auto migrate on connect, migrate only supports mysql")

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "回滚迁移，默认 1 步",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return errors.New("steps must be a positive integer")
				}
				steps = n
			}
			return withMigrator(func(m *database.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return printVersion(m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示当前迁移版本",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(printVersion)
		},
	})
	return cmd
}

func withMigrator(fn func(m *database.Migrator) error) error {
	if cfg.Database.Driver == "sqlite" {
		return errSQLiteMigrate
	}
	m, err := database.NewMigrator(cfg.Database.MySQL.GetMigrateURL())
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func printVersion(m *database.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		pterm.Warning.Printfln("schema version %d (dirty)", version)
		return nil
	}
	pterm.Success.Printfln("schema version %d", version)
	return nil
}
