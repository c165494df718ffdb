package main

import (
	"context"
	"fmt"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/common/database"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateTimeout time.Duration

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Example: `  # Apply schema using DB_* environment variables
  DB_HOST=localhost DB_NAME=vnp vnp-api migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewPostgresDB(cmd.Context(), &cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
		defer cancel()
		if err := repository.Migrate(ctx, db, log); err != nil {
			log.Error("Migration failed", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", time.Minute, "migration timeout")
}
