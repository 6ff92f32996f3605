package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/db"
	"github.com/airi-ai/airi/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := db.Migrate(cfg.ConnString()); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
