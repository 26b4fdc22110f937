package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "easytransact",
	Short:         "Escrow backend: projects, offers, realtime feed",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Get().WithField("error", err.Error()).Error("main: команда завершилась с ошибкой")
		os.Exit(1)
	}
}

// loadConfig читает конфигурацию и настраивает логгер.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cfg.Env == "development" {
		logger.Init("debug", cfg.LogFile)
		logger.SetTextFormatter()
	} else {
		logger.Init("info", cfg.LogFile)
	}
	return cfg, nil
}
