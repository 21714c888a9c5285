// Package main is the entry point for the stage viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/config"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := initLogger(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== stagegraph viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func initLogger(cfg config.LoggingConfig) error {
	var fileCfg logger.FileConfig
	if cfg.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.LogFile)
		fileCfg.JSON = cfg.JSON
	}
	return logger.InitWithFileConfig(cfg.Level, fileCfg, true)
}
