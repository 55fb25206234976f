package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/cmd"
	"github.com/hypd/urlshortener/internal/database"
)

// MigrateCmd creates or updates the database schema.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `Connects to the configured SQLite database and runs GORM automatic
migrations for the links, analytics and product_metadata tables.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := cmd.LoadConfig()
		if err != nil {
			return err
		}

		db, err := database.Open(database.Options{
			Name:          cfg.Database.Name,
			MaxOpenConns:  cfg.Database.MaxOpenConns,
			BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
		})
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}

		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
