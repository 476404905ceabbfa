package main

import (
	"github.com/spf13/cobra"

	"ecovalue/internal/platform/config"
	"ecovalue/internal/platform/logger"
	"ecovalue/internal/platform/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)
		if cfg.Storage.Driver != config.DriverPostgres {
			log.Info("storage driver is not postgres; nothing to migrate", "driver", cfg.Storage.Driver)
			return nil
		}

		db, err := postgres.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		return postgres.Migrate(cmd.Context(), db, log)
	},
}
