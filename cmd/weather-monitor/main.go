// Command weather-monitor runs the station's reading store, the polling
// dashboard and a small push tool for bench testing.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/syakhish/weather-monitor/internal/config"
	"github.com/syakhish/weather-monitor/internal/logger"
)

var (
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "weather-monitor",
		Short: "Personal weather station backend",
		Long: `Collects readings pushed by the weather station and serves them to dashboards:
- serve: accept readings over HTTP and keep the most recent ones
- dashboard: poll the server and log the live status
- push: send one reading, for testing a deployment without the device`,
		SilenceUsage: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $CONFIG_PATH, else environment only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

// loadConfig loads the configuration and builds the root logger from it.
func loadConfig() (*config.AppConfig, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	return cfg, log, nil
}
