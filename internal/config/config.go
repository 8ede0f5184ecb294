package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// AppConfig holds the settings of both the ingestion server and the
// dashboard poller. Every field can be set from the environment.
type AppConfig struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"production"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Forecast  ForecastConfig  `yaml:"forecast"`
}

type ServerConfig struct {
	Port         string        `yaml:"port" env:"PORT" env-default:"8080" validate:"required,numeric"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
	BodyLimit    int           `yaml:"body_limit" env:"SERVER_BODY_LIMIT" env-default:"65536" validate:"min=1"`
}

type StoreConfig struct {
	// Backend is one of file, sqlite or memory.
	Backend    string `yaml:"backend" env:"STORE_BACKEND" env-default:"file" validate:"oneof=file sqlite memory"`
	Path       string `yaml:"path" env:"STORE_PATH" env-default:"data/weather_data.json" validate:"required_if=Backend file"`
	SQLitePath string `yaml:"sqlite_path" env:"STORE_SQLITE_PATH" env-default:"data/weather_data.db" validate:"required_if=Backend sqlite"`

	// Retention is the maximum number of readings kept; older ones are evicted.
	Retention int `yaml:"retention" env:"STORE_RETENTION" env-default:"1000" validate:"min=1"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console" validate:"oneof=console json"`
}

type DashboardConfig struct {
	APIURL       string        `yaml:"api_url" env:"DASHBOARD_API_URL" env-default:"http://localhost:8080" validate:"required,url"`
	PollInterval time.Duration `yaml:"poll_interval" env:"DASHBOARD_POLL_INTERVAL" env-default:"15s" validate:"gte=1s"`
	HTTPTimeout  time.Duration `yaml:"http_timeout" env:"DASHBOARD_HTTP_TIMEOUT" env-default:"10s" validate:"gte=1s"`
	Timezone     string        `yaml:"timezone" env:"DASHBOARD_TIMEZONE" env-default:"Asia/Jakarta"`
	History      int           `yaml:"history" env:"DASHBOARD_HISTORY" env-default:"10" validate:"min=1"`
}

type ForecastConfig struct {
	Enabled   bool    `yaml:"enabled" env:"FORECAST_ENABLED" env-default:"false"`
	BaseURL   string  `yaml:"base_url" env:"FORECAST_BASE_URL" env-default:"https://api.open-meteo.com/v1/forecast" validate:"omitempty,url"`
	Latitude  float64 `yaml:"latitude" env:"FORECAST_LATITUDE" env-default:"-6.2" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" env:"FORECAST_LONGITUDE" env-default:"106.8" validate:"gte=-180,lte=180"`
	Days      int     `yaml:"days" env:"FORECAST_DAYS" env-default:"3" validate:"min=1,max=16"`
}

// Load reads configuration from a YAML file (path, or CONFIG_PATH when path
// is empty) overlaid with environment variables, or from the environment
// alone when no file is given. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*AppConfig, error) {
	// A missing .env is fine: variables may be set directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg := &AppConfig{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Location returns the display timezone. Hosts without tzdata get a fixed
// UTC+7 zone, the station's local time.
func (d DashboardConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(d.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("WIB", 7*60*60)
}
