package cli

import (
	"github.com/spf13/cobra"

	"github.com/ignatzorin/offer-escrow/internal/config"
	"github.com/ignatzorin/offer-escrow/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "escrowd",
	Short:         "Сервис предложений с депонированием оплаты",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute запускает корневую команду.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig читает конфигурацию и настраивает логгер.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Env, cfg.LogLevel)
	return cfg, nil
}
