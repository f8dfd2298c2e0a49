package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"storefront/config"
	"storefront/database"
	"storefront/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema and Mongo indexes",
	Long: `Apply the embedded Postgres schema and create the Mongo indexes.

The schema is idempotent, so running migrate twice is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreDriver == config.DriverMemory {
			return errors.New("migrate needs STORE_DRIVER=postgres")
		}
		log := logging.New("storefront", cfg.LogLevel)

		pool, mongo, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		defer mongo.Close(cmd.Context())

		if err := database.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		if err := mongo.EnsureIndexes(cmd.Context()); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
