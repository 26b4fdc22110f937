package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/easytransact-backend/internal/db"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.RunMigrations(cmd.Context(), conn, db.MigrationsFS(cfg.MigrationsPath))
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Get().WithField("applied", applied).Info("migrate: готово")
		return nil
	},
}
