package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"vividly/internal/artifact"
	"vividly/internal/blob"
	"vividly/internal/config"
	"vividly/internal/daemon"
	"vividly/internal/logging"
	"vividly/internal/tracker"
	"vividly/internal/workflow"
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

	store, err := tracker.Open(cfg)
	if err != nil {
		logger.Error("open request tracker", logging.Error(err))
		return
	}
	defer store.Close()

	artifacts, err := artifact.Open(cfg)
	if err != nil {
		logger.Error("open artifact cache", logging.Error(err))
		return
	}
	defer artifacts.Close()

	blobs, err := blob.NewStore(cfg.Paths.BlobDir)
	if err != nil {
		logger.Error("open blob store", logging.Error(err))
		return
	}
	manager := workflow.NewManager(cfg, store, artifacts, blobs, logger)

	d, err := daemon.New(cfg, store, manager, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("vividlyd shutting down")
	d.Stop()
}
