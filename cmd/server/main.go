package main

import (
	"os"

	"github.com/ignatzorin/offer-escrow/internal/cli"
	"github.com/ignatzorin/offer-escrow/internal/logger"
)

func main() {
	if err := cli.Execute(); err != nil {
		logger.Log.WithError(err).Error("escrowd: command failed")
		os.Exit(1)
	}
}
