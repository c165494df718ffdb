package main

import (
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/common/logger"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "vnp-api"

var (
	// PersistentPreRunE 中初始化
	cfg *config.Config
	log *zap.Logger

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Permission-scoped portfolio / property API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg = config.Load()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		l, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
