package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/profilehub/internal/config"
	"github.com/keyxmakerx/profilehub/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the local backend's database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := localConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.NewMariaDB(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.RunMigrations(db, cfg.Database.MigrationsPath)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert applied migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.New("steps must be a number")
			}
			steps = n
		}

		cfg, err := localConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.NewMariaDB(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.RollbackMigrations(db, cfg.Database.MigrationsPath, steps)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

// localConfig returns the configuration, refusing when the hosted backend
// is selected since its schema is not ours to manage.
func localConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := configFrom(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Backend.Driver != config.DriverLocal {
		return nil, errors.New("migrate needs BACKEND_DRIVER=local")
	}
	return cfg, nil
}
