package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"storefront/config"
	"storefront/controllers"
	"storefront/database"
	"storefront/models"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create an admin account in the user store.

Examples:
  storefront create-admin --email ops@shop.example --password s3cret --name Ops`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreDriver == config.DriverMemory {
			return errors.New("create-admin needs STORE_DRIVER=postgres")
		}
		if len(adminPassword) < 6 {
			return errors.New("--password must be at least 6 characters")
		}

		mongo, err := database.ConnectMongo(cmd.Context(), cfg.MongoURI, cfg.DBName)
		if err != nil {
			return err
		}
		defer mongo.Close(cmd.Context())

		user, err := controllers.NewUser(adminName, adminEmail, adminPassword, models.RoleAdmin)
		if err != nil {
			return err
		}
		if err := database.NewMongoUsers(mongo).Create(cmd.Context(), user); err != nil {
			return fmt.Errorf("create admin %s: %w", adminEmail, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", user.Email, user.ID.Hex())
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "Display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login email (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Login password (required)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
