package main

import (
	"os"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"
)

func main() {
	root := newRootCmd(func() *config.Config {
		cfg := config.Load()
		logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
		return cfg
	})
	if err := root.Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
