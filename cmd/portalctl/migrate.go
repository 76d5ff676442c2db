package main

import (
	downloaddata "github.com/lk2023060901/file-portal-backend/internal/download/data"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "migrate",
		Long: "Migrate database structures. This creates the download code, download log and admin log tables and adds missing columns and indexes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			// an explicit migrate runs regardless of database.automigrate
			if err := downloaddata.Migrate(e.data.DB, true); err != nil {
				return err
			}
			cmd.Println("migration complete")
			return nil
		},
	}
}
