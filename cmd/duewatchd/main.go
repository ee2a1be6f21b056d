package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"duewatch/internal/config"
	"duewatch/internal/daemon"
	"duewatch/internal/deadline"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
	"duewatch/internal/notify"
	"duewatch/internal/remote"
	"duewatch/internal/scheduler"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := deadline.Open(cfg)
	if err != nil {
		logger.Error("open deadline store", logging.Error(err))
		return
	}
	defer store.Close()

	var remoteAccess expiring.Access
	var prober scheduler.HealthProber
	if cfg.Remote.Enabled {
		client := remote.NewClient(cfg)
		remoteAccess = expiring.NewRemoteAccess(client, logger)
		prober = client
	}

	messenger := notify.NewFromConfig(cfg, logger)
	access := expiring.NewResilient(remoteAccess, expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired), logger)
	resolver := notify.NewResolver(cfg, logger)
	dispatcher := notify.NewDispatcher(store, access, messenger, resolver, cfg.Dispatch.Thresholds, logger)
	sched := scheduler.New(cfg, store, dispatcher, messenger, prober, logger)

	d, err := daemon.New(cfg, store, sched, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	d.Stop()
	logger.Info("duewatchd shutting down")
}
