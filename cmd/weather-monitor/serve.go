package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/syakhish/weather-monitor/internal/api/http"
	"github.com/syakhish/weather-monitor/internal/logger"
	"github.com/syakhish/weather-monitor/internal/metrics"
	"github.com/syakhish/weather-monitor/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reading store HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	backend, err := store.OpenBackend(cfg.Store)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store backend")
		return err
	}

	readings := store.New(backend, cfg.Store.Retention,
		store.WithLogger(logger.Component(log, "store")),
		store.WithMetrics(metrics.NewStoreMetrics(reg)),
	)
	defer func() {
		if err := readings.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing store")
		}
	}()

	access := logger.Component(log, "http")
	app := httpapi.NewApp(readings, httpapi.Options{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		AccessLog:    &access,
		Registry:     reg,
	})

	log.Info().
		Str("port", cfg.Server.Port).
		Str("backend", cfg.Store.Backend).
		Int("retention", cfg.Store.Retention).
		Msg("starting reading store")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Server.Port)
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("reading store stopped")
	return nil
}
