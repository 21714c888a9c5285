// Package main is the entry point for the asset server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/config"
	"github.com/Faultbox/stagegraph/internal/fetch"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/server"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Serving our own remote would loop.
	cfg.Data.Remote = ""
	src, err := fetch.Open(cfg.Data)
	if err != nil {
		logger.Error("failed to open sources", zap.Error(err))
		os.Exit(1)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(src, cfg.Data.Base, cfg.Data.ArchiveExt)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
