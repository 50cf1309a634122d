package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/feed"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/relay"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/venueconfig"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := venueconfig.NewConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	jsCfg := relay.DefaultJetStreamConfig()
	jsCfg.URL = getEnv("NATS_URL", jsCfg.URL)
	jsCfg.StreamName = getEnv("KIDYLAND_STREAM", jsCfg.StreamName)

	log.Info().
		Str("sucursal_id", cfg.SucursalID).
		Str("ws_url", cfg.WSURL).
		Str("nats_url", jsCfg.URL).
		Str("stream", jsCfg.StreamName).
		Msg("starting feed relay")

	feedCfg := feed.DefaultConfig(cfg.WSURL, cfg.Token, cfg.SucursalID)
	feedCfg.AuthRetryLimit = cfg.AuthRetryLimit
	client, err := feed.New(feedCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feed client")
	}

	pub, err := relay.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer pub.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := relay.New(client, pub, cfg.SucursalID, nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- r.Run(ctx)
	}()

	// Wait for interrupt signal or relay exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
		client.Close()
		<-runErr
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("relay stopped")
		}
		client.Close()
	}

	relayed, failed := r.Stats()
	log.Info().
		Int64("relayed", relayed).
		Int64("failed", failed).
		Msg("feed relay shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
