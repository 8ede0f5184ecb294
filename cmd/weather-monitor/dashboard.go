package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"

	"github.com/syakhish/weather-monitor/internal/client"
	"github.com/syakhish/weather-monitor/internal/dashboard"
	"github.com/syakhish/weather-monitor/internal/forecast"
	"github.com/syakhish/weather-monitor/internal/metrics"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Poll the reading store and log the live status",
	Long: `Poll the reading store on a fixed interval and log one status line per poll:
- latest reading in the display timezone
- rain/cloud status derived from the sensor values
- optional Open-Meteo forecast for the station's location`,
	RunE: runDashboard,
}

var dashboardListen string

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringVar(&dashboardListen, "listen", "", "address serving /summary and /metrics (disabled when empty)")
}

func runDashboard(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.Dashboard.HTTPTimeout,
	}

	reg := metrics.NewRegistry()
	opts := dashboard.Options{
		Interval: cfg.Dashboard.PollInterval,
		Timeout:  cfg.Dashboard.HTTPTimeout,
		History:  cfg.Dashboard.History,
		Location: cfg.Dashboard.Location(),
		Metrics:  metrics.NewPollerMetrics(reg),
		Logger:   log,
	}
	if cfg.Forecast.Enabled {
		opts.Forecast = forecast.NewOpenMeteoProvider(
			httpClient,
			cfg.Forecast.BaseURL,
			cfg.Forecast.Latitude,
			cfg.Forecast.Longitude,
			cfg.Forecast.Days,
		)
	}

	poller := dashboard.NewPoller(client.New(httpClient, cfg.Dashboard.APIURL), opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := poller.Start(ctx); err != nil {
		log.Error().Err(err).Msg("failed to start poller")
		return err
	}
	defer poller.Stop()

	log.Info().Str("api_url", cfg.Dashboard.APIURL).Bool("forecast", cfg.Forecast.Enabled).Msg("dashboard running")

	if dashboardListen != "" {
		app := fiber.New(fiber.Config{
			AppName:               "weather-monitor-dashboard",
			DisableStartupMessage: true,
		})
		app.Get("/summary", func(c *fiber.Ctx) error {
			return c.JSON(poller.Summary())
		})
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(reg)))

		go func() {
			if err := app.Listen(dashboardListen); err != nil {
				log.Error().Err(err).Msg("dashboard listener stopped")
			}
		}()
		defer func() {
			if err := app.Shutdown(); err != nil {
				log.Warn().Err(err).Msg("error during shutdown")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("dashboard stopped")
	return nil
}
