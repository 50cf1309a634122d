package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/clients/venue_api_client"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/alerts"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/feed"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/monitor"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/session"
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

	port := getEnv("MONITOR_PORT", "8090")
	cfg := venueconfig.NewConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("sucursal_id", cfg.SucursalID).
		Str("ws_url", cfg.WSURL).
		Str("port", port).
		Msg("starting sucursal monitor")

	// Alert thresholds come from a YAML file when present
	thresholds := alerts.DefaultConfig()
	alertsPath := getEnv("KIDYLAND_ALERTS_CONFIG", "configs/alerts.yml")
	if loaded, err := alerts.LoadConfig(alertsPath); err != nil {
		log.Warn().Err(err).Str("path", alertsPath).Msg("using default alert thresholds")
	} else {
		thresholds = loaded
	}

	feedCfg := feed.DefaultConfig(cfg.WSURL, cfg.Token, cfg.SucursalID)
	feedCfg.AuthRetryLimit = cfg.AuthRetryLimit

	api := venue_api_client.NewVenueApiClient(cfg.APIURL, cfg.Token)

	var handler *monitor.Handler
	sess, err := session.New(session.Config{
		Feed:       feedCfg,
		Thresholds: thresholds,
		API:        api,
		OnNotification: func(n alerts.Notification) {
			handler.RecordNotification(n)
			log.Info().
				Str("timer_id", n.TimerID).
				Str("source", string(n.Source)).
				Str("message", n.Message).
				Msg("alert")
		},
		OnSoundStop: func(timerID string) {
			log.Info().Str("timer_id", timerID).Msg("alert sound stopped")
		},
		OnStateChange: func(state feed.ConnState) {
			log.Info().Str("state", string(state)).Msg("feed connection state changed")
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}
	handler = monitor.NewHandler(sess, cfg.SucursalID)

	// Setup HTTP server
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"kidyland-monitor","version":"1.0.0","sucursal_id":%q,"connection":%q}`,
			cfg.SucursalID, sess.ConnState())
	})

	// Setup CORS middleware for browser dashboards
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      c.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	sess.Close()
	cancel()

	log.Info().Msg("monitor shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
