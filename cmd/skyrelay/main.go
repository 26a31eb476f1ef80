package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"skyrelay/internal/bluesky"
	"skyrelay/internal/config"
	"skyrelay/internal/relay"
	"skyrelay/internal/storage"
	"skyrelay/internal/twitter"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.WithFields(logrus.Fields{
		"actor":    cfg.Bluesky.Actor,
		"username": cfg.Bluesky.Username,
		"refresh":  cfg.Bluesky.Refresh,
	}).Info("Configuration loaded")

	store, err := storage.NewBadgerStore(cfg.Storage.Path, log)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Error closing store")
		}
	}()

	blueskyClient := bluesky.NewClient(cfg.Bluesky, store, log)
	twitterClient := twitter.NewClient(cfg.Twitter, log)
	poster := relay.NewRelay(twitterClient, cfg.Preview.PublicHost, log)

	syncer := relay.NewSyncer(blueskyClient, poster, store,
		cfg.Bluesky.Actor, cfg.Bluesky.Username, cfg.Bluesky.FeedLimit,
		cfg.Bluesky.RefreshInterval(), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go store.RunGC(ctx, 5*time.Minute)
	go syncer.Run(ctx)

	log.Info("skyrelay is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	log.Info("Shutting down skyrelay")
}
