package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"sluice/internal/config"
	"sluice/internal/daemon"
	"sluice/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, cleanup, err := daemon.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", logging.Error(err))
		return
	}
	defer cleanup()
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return
	}

	d.Wait()
	logger.Info("sluiced shutting down")
	d.Stop()
}
