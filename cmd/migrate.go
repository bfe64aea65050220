package cmd

import (
	"log"

	"taskshare/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(pool.DB); err != nil {
			return err
		}
		log.Printf("database schema is up to date (%s)", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
